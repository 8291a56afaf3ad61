package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func envMap(values map[string]string) Option {
	return WithLookupEnv(func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	})
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formwizard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 10*time.Second, cfg.Resolver.Timeout)
	assert.Equal(t, "X-API-Key", cfg.Resolver.APIKeyHeader)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
resolver:
  timeout: 3s
  debounceWindow: 250ms
  credentialsFile: creds.yaml
server:
  addr: 127.0.0.1:9000
store:
  dsn: postgres://forms@localhost/forms
formsAPI:
  baseURL: https://admin.example.com
`)

	cfg, err := Load(path, envMap(map[string]string{
		"LOG_LEVEL":                   "warn",
		"FORMWIZARD_RESOLVER_TIMEOUT": "5s",
		"FORMWIZARD_FORMS_API_TOKEN":  "secret",
		"FORMWIZARD_STORE_DSN":        "",
	}))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 5*time.Second, cfg.Resolver.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Resolver.DebounceWindow)
	assert.Equal(t, "X-API-Key", cfg.Resolver.APIKeyHeader, "default kept when the file omits it")
	assert.Equal(t, "creds.yaml", cfg.Resolver.CredentialsFile)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "", cfg.Store.DSN, "empty env DSN selects the memory store")
	assert.Equal(t, "https://admin.example.com", cfg.FormsAPI.BaseURL)
	assert.Equal(t, "secret", cfg.FormsAPI.Token)
}

func TestLoad_PrefixedLogLevelWins(t *testing.T) {
	cfg, err := Load("", envMap(map[string]string{
		"LOG_LEVEL":            "warn",
		"FORMWIZARD_LOG_LEVEL": "trace",
	}))
	require.NoError(t, err)
	assert.Equal(t, "trace", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "unknown: true\n"), envMap(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown")

	_, err = Load("", envMap(map[string]string{
		"FORMWIZARD_RESOLVER_TIMEOUT": "soon",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FORMWIZARD_RESOLVER_TIMEOUT")
}

func TestValidate_AggregatesIssues(t *testing.T) {
	cfg := Default()
	cfg.Resolver.Timeout = 0
	cfg.Resolver.APIKeyHeader = " "
	cfg.Server.Addr = ""
	cfg.FormsAPI.BaseURL = "ftp://example.com"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 4)
}
