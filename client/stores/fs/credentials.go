// Package fs provides a file-backed credential store for the grovekeep client.
package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/panyam/grovekeep/client"
)

// DefaultAppName names the config directory when no path is given
const DefaultAppName = "grovekeep"

// FSCredentialStore stores credentials as a JSON file on the filesystem
type FSCredentialStore struct {
	mu       sync.RWMutex
	path     string
	servers  map[string]*client.ServerCredential
	modified bool
}

// credentialFile is the JSON structure stored on disk
type credentialFile struct {
	Servers map[string]*client.ServerCredential `json:"servers"`
}

// NewFSCredentialStore creates a new FS-based credential store.
// If path is empty, defaults to <user config dir>/<appName>/credentials.json
func NewFSCredentialStore(path string, appName string) (*FSCredentialStore, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("could not determine config directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		if appName == "" {
			appName = DefaultAppName
		}
		path = filepath.Join(configDir, appName, "credentials.json")
	}

	store := &FSCredentialStore{
		path:    path,
		servers: make(map[string]*client.ServerCredential),
	}
	if err := store.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return store, nil
}

func (s *FSCredentialStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var file credentialFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if file.Servers != nil {
		s.servers = file.Servers
	}
	return nil
}

func (s *FSCredentialStore) GetCredential(serverURL string) (*client.ServerCredential, error) {
	key, err := client.NormalizeServerURL(serverURL)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.servers[key], nil
}

func (s *FSCredentialStore) SetCredential(serverURL string, cred *client.ServerCredential) error {
	key, err := client.NormalizeServerURL(serverURL)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[key] = cred
	s.modified = true
	return nil
}

func (s *FSCredentialStore) RemoveCredential(serverURL string) error {
	key, err := client.NormalizeServerURL(serverURL)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.servers[key]; ok {
		delete(s.servers, key)
		s.modified = true
	}
	return nil
}

func (s *FSCredentialStore) ListServers() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	servers := make([]string, 0, len(s.servers))
	for k := range s.servers {
		servers = append(servers, k)
	}
	return servers, nil
}

// Save writes pending changes to disk, owner read/write only. Session tokens
// are bearer secrets, so the file must never be group or world readable.
func (s *FSCredentialStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.modified {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(credentialFile{Servers: s.servers}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	s.modified = false
	return nil
}

// Path returns the path to the credentials file
func (s *FSCredentialStore) Path() string {
	return s.path
}
