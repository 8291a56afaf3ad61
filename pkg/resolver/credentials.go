package resolver

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Credential kinds understood when building request headers.
const (
	CredentialAPIKey = "api_key"
	CredentialBasic  = "basic"
	CredentialOAuth  = "oauth"
)

// Credential is an externally managed secret referenced by an authKey.
type Credential struct {
	Name   string `yaml:"name" json:"name"`
	Type   string `yaml:"type" json:"type"`
	Key    string `yaml:"key" json:"key"`
	Secret string `yaml:"secret,omitempty" json:"secret,omitempty"`
	// Header overrides the API key header for this credential.
	Header string `yaml:"header,omitempty" json:"header,omitempty"`
	Status string `yaml:"status,omitempty" json:"status,omitempty"`
}

// Active reports whether the credential may be used. An empty status counts
// as active.
func (c Credential) Active() bool {
	return c.Status == "" || strings.EqualFold(c.Status, "active")
}

// CredentialStore resolves an opaque authKey into a credential.
type CredentialStore interface {
	Lookup(ctx context.Context, authKey string) (Credential, bool, error)
}

// MemoryCredentials is an in-memory CredentialStore.
type MemoryCredentials struct {
	mu    sync.RWMutex
	items map[string]Credential
}

// NewMemoryCredentials returns a store seeded with the supplied entries.
func NewMemoryCredentials(entries map[string]Credential) *MemoryCredentials {
	store := &MemoryCredentials{items: make(map[string]Credential, len(entries))}
	for key, cred := range entries {
		store.items[key] = cred
	}
	return store
}

// Put registers or replaces a credential.
func (m *MemoryCredentials) Put(authKey string, cred Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]Credential)
	}
	m.items[authKey] = cred
}

// Lookup implements CredentialStore. Inactive credentials are reported as
// missing.
func (m *MemoryCredentials) Lookup(ctx context.Context, authKey string) (Credential, bool, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	cred, ok := m.items[authKey]
	if !ok || !cred.Active() {
		return Credential{}, false, nil
	}
	return cred, true, nil
}

type credentialsFile struct {
	Credentials map[string]Credential `yaml:"credentials"`
}

// LoadCredentialsFile reads a YAML file of the form
//
//	credentials:
//	  registry:
//	    type: api_key
//	    key: secret-value
func LoadCredentialsFile(path string) (*MemoryCredentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resolver: read credentials: %w", err)
	}
	var parsed credentialsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("resolver: parse credentials %s: %w", path, err)
	}
	for key, cred := range parsed.Credentials {
		switch cred.Type {
		case CredentialAPIKey, CredentialBasic, CredentialOAuth:
		default:
			return nil, fmt.Errorf("resolver: credential %q has unsupported type %q", key, cred.Type)
		}
	}
	return NewMemoryCredentials(parsed.Credentials), nil
}
