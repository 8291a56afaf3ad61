// Package config loads the formwizard configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formwizard/pkg/resolver"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FORMWIZARD_"

// Defaults for the values not set by file or environment.
const (
	DefaultLogLevel   = "info"
	DefaultServerAddr = ":8080"
	DefaultStoreDSN   = "file:formwizard.db?_pragma=busy_timeout(5000)"
)

// Log configures the logrus logger.
type Log struct {
	Level string `yaml:"level"`
}

// Resolver configures external source lookups.
type Resolver struct {
	Timeout         time.Duration `yaml:"timeout"`
	DebounceWindow  time.Duration `yaml:"debounceWindow"`
	APIKeyHeader    string        `yaml:"apiKeyHeader"`
	CredentialsFile string        `yaml:"credentialsFile"`
}

// Server configures the forms persistence API.
type Server struct {
	Addr string `yaml:"addr"`
	// OptionListsFile holds lists served under /api/options.
	OptionListsFile string `yaml:"optionListsFile"`
}

// Store selects the form store. An empty DSN keeps forms in memory.
type Store struct {
	DSN string `yaml:"dsn"`
}

// FormsAPI points the CLI at a remote persistence API.
type FormsAPI struct {
	BaseURL string `yaml:"baseURL"`
	Token   string `yaml:"token"`
}

// Config is the full configuration tree.
type Config struct {
	Log      Log      `yaml:"log"`
	Resolver Resolver `yaml:"resolver"`
	Server   Server   `yaml:"server"`
	Store    Store    `yaml:"store"`
	FormsAPI FormsAPI `yaml:"formsAPI"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Log: Log{Level: DefaultLogLevel},
		Resolver: Resolver{
			Timeout:        resolver.DefaultTimeout,
			DebounceWindow: resolver.DefaultDebounceWindow,
			APIKeyHeader:   resolver.DefaultAPIKeyHeader,
		},
		Server: Server{Addr: DefaultServerAddr},
		Store:  Store{DSN: DefaultStoreDSN},
	}
}

// LookupEnv reads one environment variable.
type LookupEnv func(key string) (string, bool)

type loadOptions struct {
	lookup LookupEnv
}

// Option customises Load.
type Option func(*loadOptions)

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(lookup LookupEnv) Option {
	return func(o *loadOptions) {
		if lookup != nil {
			o.lookup = lookup
		}
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string, opts ...Option) (Config, error) {
	options := loadOptions{lookup: os.LookupEnv}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	cfg := Default()
	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, options.lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping the values the document leaves out.
// Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup LookupEnv) error {
	get := func(key string) (string, bool) {
		value, ok := lookup(EnvPrefix + key)
		return strings.TrimSpace(value), ok
	}

	if value, ok := lookup("LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		cfg.Log.Level = strings.TrimSpace(value)
	}
	if value, ok := get("LOG_LEVEL"); ok && value != "" {
		cfg.Log.Level = value
	}

	var errs error
	durations := map[string]*time.Duration{
		"RESOLVER_TIMEOUT": &cfg.Resolver.Timeout,
		"DEBOUNCE_WINDOW":  &cfg.Resolver.DebounceWindow,
	}
	for key, target := range durations {
		value, ok := get(key)
		if !ok || value == "" {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err))
			continue
		}
		*target = parsed
	}

	strs := map[string]*string{
		"API_KEY_HEADER":   &cfg.Resolver.APIKeyHeader,
		"CREDENTIALS_FILE": &cfg.Resolver.CredentialsFile,
		"SERVER_ADDR":      &cfg.Server.Addr,
		"OPTION_LISTS":     &cfg.Server.OptionListsFile,
		"FORMS_API_URL":    &cfg.FormsAPI.BaseURL,
		"FORMS_API_TOKEN":  &cfg.FormsAPI.Token,
	}
	for key, target := range strs {
		if value, ok := get(key); ok && value != "" {
			*target = value
		}
	}
	// An explicitly empty DSN selects the memory store.
	if value, ok := get("STORE_DSN"); ok {
		cfg.Store.DSN = value
	}
	return errs
}

// Validate reports every invalid value at once.
func (c Config) Validate() error {
	var errs error
	if c.Resolver.Timeout <= 0 {
		errs = multierr.Append(errs, errors.New("config: resolver.timeout must be positive"))
	}
	if c.Resolver.DebounceWindow < 0 {
		errs = multierr.Append(errs, errors.New("config: resolver.debounceWindow must not be negative"))
	}
	if strings.TrimSpace(c.Resolver.APIKeyHeader) == "" {
		errs = multierr.Append(errs, errors.New("config: resolver.apiKeyHeader is required"))
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = multierr.Append(errs, errors.New("config: server.addr is required"))
	}
	if base := strings.TrimSpace(c.FormsAPI.BaseURL); base != "" &&
		!strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		errs = multierr.Append(errs, fmt.Errorf("config: formsAPI.baseURL %q must be an http(s) URL", base))
	}
	return errs
}
