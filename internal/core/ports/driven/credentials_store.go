package driven

import (
	"context"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

// CredentialsStore persists OAuth credentials keyed by user and provider.
type CredentialsStore interface {
	// Save stores credentials. Creates if new, updates if exists.
	Save(ctx context.Context, creds domain.Credentials) error

	// Get retrieves credentials by key.
	// Returns domain.ErrNotFound if none are stored.
	Get(ctx context.Context, key domain.CredentialKey) (*domain.Credentials, error)

	// Delete removes credentials by key.
	Delete(ctx context.Context, key domain.CredentialKey) error
}
