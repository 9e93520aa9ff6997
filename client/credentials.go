// Package client provides a Go client for the grovekeep HTTP API. It keeps the
// session token in a CredentialStore and attaches it to every request.
package client

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

// ServerCredential holds the session for a single server
type ServerCredential struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id,omitempty"`
	UserEmail string    `json:"user_email,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired returns true if the session has expired
func (c *ServerCredential) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// CredentialStore defines the interface for storing and retrieving credentials
type CredentialStore interface {
	// GetCredential retrieves a credential for a server URL
	// Returns nil, nil if no credential exists for the server
	GetCredential(serverURL string) (*ServerCredential, error)

	// SetCredential stores a credential for a server URL
	SetCredential(serverURL string, cred *ServerCredential) error

	// RemoveCredential removes a credential for a server URL
	RemoveCredential(serverURL string) error

	// ListServers returns all server URLs with stored credentials
	ListServers() ([]string, error)

	// Save persists any pending changes (for stores that batch writes)
	Save() error
}

// NormalizeServerURL reduces a server URL to scheme://host, defaulting to https
func NormalizeServerURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
}

// MemoryCredentialStore keeps credentials for the life of the process
type MemoryCredentialStore struct {
	mu      sync.RWMutex
	servers map[string]*ServerCredential
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{servers: make(map[string]*ServerCredential)}
}

func (s *MemoryCredentialStore) GetCredential(serverURL string) (*ServerCredential, error) {
	key, err := NormalizeServerURL(serverURL)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.servers[key], nil
}

func (s *MemoryCredentialStore) SetCredential(serverURL string, cred *ServerCredential) error {
	key, err := NormalizeServerURL(serverURL)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[key] = cred
	return nil
}

func (s *MemoryCredentialStore) RemoveCredential(serverURL string) error {
	key, err := NormalizeServerURL(serverURL)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.servers, key)
	return nil
}

func (s *MemoryCredentialStore) ListServers() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	servers := make([]string, 0, len(s.servers))
	for k := range s.servers {
		servers = append(servers, k)
	}
	return servers, nil
}

func (s *MemoryCredentialStore) Save() error { return nil }
