package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zalando/go-keyring"
)

// StoredToken is the persisted token document. The layout matches what the
// login tool reports and what the refresh path reads back.
type StoredToken struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresAt        int64  `json:"expires_at"`
	KeycloakTokenURL string `json:"keycloak_token_url"`
}

// TokenStore persists Keycloak tokens between invocations.
//
// Load returns (nil, nil) when no token has been saved yet; callers treat
// that as unauthenticated rather than an error.
type TokenStore interface {
	Load() (*StoredToken, error)
	Save(tok *StoredToken) error

	// Description says where tokens live, for user-facing messages.
	Description() string
}

// FileStore keeps the token document as JSON on disk.
//
// Reads and writes are not locked against concurrent server instances;
// last writer wins, which is acceptable for a per-user token cache.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the default location,
// ~/.ktalk-mcp/token.json.
func NewFileStore() (*FileStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return NewFileStoreAt(filepath.Join(home, ".ktalk-mcp", "token.json")), nil
}

// NewFileStoreAt creates a FileStore at an explicit path.
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{path: path}
}

// Load implements TokenStore.
func (s *FileStore) Load() (*StoredToken, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	var tok StoredToken
	if err := json.Unmarshal(data, &tok); err != nil {
		// A corrupt token file is treated as no token, matching the
		// behavior of a missing one.
		return nil, nil
	}
	return &tok, nil
}

// Save implements TokenStore. The directory is created with 0700 and the
// file with 0600 since it holds bearer tokens.
func (s *FileStore) Save(tok *StoredToken) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Description implements TokenStore.
func (s *FileStore) Description() string {
	return s.path
}

// Keyring identifiers for the keyring-backed store.
const (
	keyringService = "ktalk-mcp"
	keyringUser    = "token"
)

// KeyringStore keeps the token document in the OS keyring instead of a
// plain file.
type KeyringStore struct{}

// NewKeyringStore creates a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

// Load implements TokenStore.
func (s *KeyringStore) Load() (*StoredToken, error) {
	data, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read token from keyring: %w", err)
	}
	var tok StoredToken
	if err := json.Unmarshal([]byte(data), &tok); err != nil {
		return nil, nil
	}
	return &tok, nil
}

// Save implements TokenStore.
func (s *KeyringStore) Save(tok *StoredToken) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := keyring.Set(keyringService, keyringUser, string(data)); err != nil {
		return fmt.Errorf("failed to write token to keyring: %w", err)
	}
	return nil
}

// Description implements TokenStore.
func (s *KeyringStore) Description() string {
	return "the system keyring"
}

// MemoryStore is an in-memory TokenStore used in tests.
type MemoryStore struct {
	mu  sync.Mutex
	tok *StoredToken
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements TokenStore.
func (s *MemoryStore) Load() (*StoredToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok == nil {
		return nil, nil
	}
	cp := *s.tok
	return &cp, nil
}

// Save implements TokenStore.
func (s *MemoryStore) Save(tok *StoredToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tok
	s.tok = &cp
	return nil
}

// Description implements TokenStore.
func (s *MemoryStore) Description() string {
	return "memory"
}

// NewStore builds a TokenStore by name: "file" (default) or "keyring".
func NewStore(kind string) (TokenStore, error) {
	switch kind {
	case "", "file":
		return NewFileStore()
	case "keyring":
		return NewKeyringStore(), nil
	default:
		return nil, fmt.Errorf("unsupported token store: %s (supported: file, keyring)", kind)
	}
}
