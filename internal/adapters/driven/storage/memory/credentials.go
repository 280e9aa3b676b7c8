package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
)

// Ensure CredentialsStore implements the interface.
var _ driven.CredentialsStore = (*CredentialsStore)(nil)

// CredentialsStore is an in-memory implementation of driven.CredentialsStore.
type CredentialsStore struct {
	mu    sync.RWMutex
	creds map[domain.CredentialKey]domain.Credentials
}

// NewCredentialsStore creates a new in-memory credentials store.
func NewCredentialsStore() *CredentialsStore {
	return &CredentialsStore{
		creds: make(map[domain.CredentialKey]domain.Credentials),
	}
}

// Save stores credentials, replacing any existing entry for the key.
func (s *CredentialsStore) Save(_ context.Context, creds domain.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if creds.OAuth != nil {
		oauth := *creds.OAuth
		creds.OAuth = &oauth
	}
	s.creds[creds.Key()] = creds
	return nil
}

// Get retrieves credentials by key.
func (s *CredentialsStore) Get(_ context.Context, key domain.CredentialKey) (*domain.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	creds, ok := s.creds[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if creds.OAuth != nil {
		oauth := *creds.OAuth
		creds.OAuth = &oauth
	}
	return &creds, nil
}

// Delete removes credentials by key.
func (s *CredentialsStore) Delete(_ context.Context, key domain.CredentialKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, key)
	return nil
}

// Len returns the number of stored entries.
func (s *CredentialsStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.creds)
}
