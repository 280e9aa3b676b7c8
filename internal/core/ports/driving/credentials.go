package driving

import (
	"context"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
)

// CredentialsService owns OAuth credentials with one writer per key.
type CredentialsService interface {
	// Get returns valid credentials, refreshing them first if they are stale.
	// Returns domain.ErrAuthRequired if none are stored.
	Get(ctx context.Context, key domain.CredentialKey) (*domain.Credentials, error)

	// Refresh forces a token refresh.
	Refresh(ctx context.Context, key domain.CredentialKey) (*domain.Credentials, error)

	// Put stores credentials.
	Put(ctx context.Context, creds domain.Credentials) error

	// BeginAuthorization prepares an authorization code flow for provider
	// and returns the request parameters with the consent URL.
	BeginAuthorization(provider, redirectURL string) (*domain.AuthorizationRequest, string, error)

	// Exchange trades an authorization code for credentials and stores them.
	Exchange(ctx context.Context, key domain.CredentialKey, code string, req domain.AuthorizationRequest) (*domain.Credentials, error)

	// Link exchanges a code and stores the tokens under the user resolve picks.
	Link(ctx context.Context, provider, code string, req domain.AuthorizationRequest, resolve AccountResolver) (*domain.Credentials, error)

	// TokenProvider returns a token source for key that refreshes on demand.
	TokenProvider(key domain.CredentialKey) driven.TokenProvider
}

// AccountResolver maps freshly exchanged tokens to the owning user id and
// the account address at the provider.
type AccountResolver func(ctx context.Context, token *domain.OAuthCredentials) (userID, account string, err error)
