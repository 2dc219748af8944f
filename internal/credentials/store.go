// Package credentials stores the remote API token.
package credentials

import (
	"strings"
	"sync"

	"github.com/timernudge/timernudge/internal/apperr"
)

const tokenName = "api-token"

// Store is opaque get/set/delete of the API token. Load returns ok=false when
// nothing is stored. Failures are apperr storage errors.
type Store interface {
	Load() (token string, ok bool, err error)
	Save(token string) error
	Delete() error
}

// Backend is the persistence a DBStore needs; *database.Repository satisfies it.
type Backend interface {
	GetCredential(name string) (string, bool, error)
	PutCredential(name, secret string) error
	DeleteCredential(name string) error
}

// DBStore keeps the token in the local SQLite database.
type DBStore struct {
	backend Backend
}

// NewDBStore creates a credential store persisted through backend.
func NewDBStore(backend Backend) *DBStore {
	return &DBStore{backend: backend}
}

func (s *DBStore) Load() (string, bool, error) {
	token, ok, err := s.backend.GetCredential(tokenName)
	if err != nil {
		return "", false, apperr.StorageFailed("read", err)
	}
	token = strings.TrimSpace(token)
	return token, ok && token != "", nil
}

func (s *DBStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.Delete()
	}
	if err := s.backend.PutCredential(tokenName, token); err != nil {
		return apperr.StorageFailed("save", err)
	}
	return nil
}

func (s *DBStore) Delete() error {
	if err := s.backend.DeleteCredential(tokenName); err != nil {
		return apperr.StorageFailed("delete", err)
	}
	return nil
}

// MemoryStore is an in-process Store, used by tests and one-shot commands
// that take the token from the environment.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore creates an in-process store holding token; "" means none.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: strings.TrimSpace(token)}
}

func (s *MemoryStore) Load() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != "", nil
}

func (s *MemoryStore) Save(token string) error {
	s.mu.Lock()
	s.token = strings.TrimSpace(token)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete() error {
	return s.Save("")
}
