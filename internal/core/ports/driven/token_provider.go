package driven

import (
	"context"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

// TokenProvider provides access tokens for authenticated API calls.
// Implementations handle token refresh transparently.
type TokenProvider interface {
	// GetToken returns a valid access token.
	// If the current token is stale, it will be refreshed first.
	GetToken(ctx context.Context) (string, error)

	// IsAuthenticated returns true if valid authentication is available.
	IsAuthenticated() bool
}

// TokenRefresher exchanges OAuth codes and refresh tokens with an identity provider.
type TokenRefresher interface {
	// Refresh obtains a new access token.
	// Returns an error wrapping domain.ErrTokenRefreshFailed on failure.
	Refresh(ctx context.Context, refreshToken string) (*domain.OAuthCredentials, error)

	// AuthCodeURL returns the consent URL the user must visit.
	AuthCodeURL(req domain.AuthorizationRequest) string

	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, code string, req domain.AuthorizationRequest) (*domain.OAuthCredentials, error)
}
