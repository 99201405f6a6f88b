// File: internal/store/store.go

// Package store persists credentials between runs. Usernames live in a
// plain JSON index; each secret is sealed separately with a key derived
// from a machine-local key file, so the index can be listed without
// ever touching secret material.
package store

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"

	"github.com/obspull/obspull-cli/api/schemas"
)

const (
	profilesFile = "profiles.json"
	keyFile      = "store.key"
	secretExt    = ".cred"
	dirMode      = 0o700
	fileMode     = 0o600
)

// FileStore implements schemas.CredentialStore on a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var _ schemas.CredentialStore = (*FileStore)(nil)

// NewFileStore opens (creating if needed) the store at dir. An empty
// dir selects the per-user data directory.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".local", "share", "obspull")
	}
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Load returns the secret for username. ok is false when no secret is
// stored; err reports real failures (unreadable file, corrupt blob).
func (s *FileStore) Load(username string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := os.ReadFile(s.secretPath(username))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	passphrase, err := s.machineKey()
	if err != nil {
		return "", false, err
	}
	raw, err := decrypt(passphrase, blob)
	if err != nil {
		return "", false, fmt.Errorf("failed to unseal secret for %s: %w", username, err)
	}
	return string(raw), true, nil
}

// Save seals the secret and adds username to the profile index.
func (s *FileStore) Save(username, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	passphrase, err := s.machineKey()
	if err != nil {
		return err
	}
	blob, err := encrypt(passphrase, []byte(secret))
	if err != nil {
		return fmt.Errorf("failed to seal secret: %w", err)
	}
	if err := os.WriteFile(s.secretPath(username), blob, fileMode); err != nil {
		return err
	}

	users, err := s.readProfiles()
	if err != nil {
		return err
	}
	for _, u := range users {
		if u == username {
			return nil
		}
	}
	return s.writeProfiles(append(users, username))
}

// Delete removes the sealed secret and the index entry. Deleting an
// unknown user is a no-op.
func (s *FileStore) Delete(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.secretPath(username)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	users, err := s.readProfiles()
	if err != nil {
		return err
	}
	kept := users[:0]
	for _, u := range users {
		if u != username {
			kept = append(kept, u)
		}
	}
	return s.writeProfiles(kept)
}

// List returns the known usernames, sorted. Secrets are never read.
func (s *FileStore) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readProfiles()
	if err != nil {
		return nil, err
	}
	sort.Strings(users)
	return users, nil
}

func (s *FileStore) secretPath(username string) string {
	// Usernames are student numbers; sanitize anyway so a hostile
	// value cannot escape the store directory.
	safe := filepath.Base(username)
	return filepath.Join(s.dir, safe+secretExt)
}

func (s *FileStore) readProfiles() ([]string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, profilesFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var users []string
	if err := jsoniter.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("corrupt profile index: %w", err)
	}
	return users, nil
}

func (s *FileStore) writeProfiles(users []string) error {
	raw, err := jsoniter.Marshal(users)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, profilesFile), raw, fileMode)
}

// machineKey loads the store's key material, generating it on first
// use. The key never leaves the store directory.
func (s *FileStore) machineKey() (string, error) {
	path := filepath.Join(s.dir, keyFile)
	raw, err := os.ReadFile(path)
	if err == nil {
		return string(raw), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	var key [32]byte
	if _, err := rand.Read(key[:]); err != nil {
		return "", fmt.Errorf("failed to generate store key: %w", err)
	}
	encoded := fmt.Sprintf("%x", key)
	if err := os.WriteFile(path, []byte(encoded), fileMode); err != nil {
		return "", fmt.Errorf("failed to write store key: %w", err)
	}
	return encoded, nil
}
