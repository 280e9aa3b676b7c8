package domain

import "time"

// CredentialProviderGmail is the provider key for Google mail credentials.
const CredentialProviderGmail = "gmail"

// DefaultRefreshBuffer is how long before expiry a token is treated as stale.
const DefaultRefreshBuffer = 5 * time.Minute

// CredentialKey identifies one credential entry: a user at a provider.
type CredentialKey struct {
	UserID   string
	Provider string
}

// String returns a stable map/lock key.
func (k CredentialKey) String() string {
	return k.Provider + ":" + k.UserID
}

// Credentials stores a user's OAuth tokens for one provider.
type Credentials struct {
	UserID string `json:"user_id"`
	// Provider is the upstream the tokens are for, e.g. "gmail".
	Provider string `json:"provider"`
	// AccountIdentifier is the user's address at the provider.
	AccountIdentifier string            `json:"account_identifier,omitempty"`
	OAuth             *OAuthCredentials `json:"oauth,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Key returns the credential key.
func (c *Credentials) Key() CredentialKey {
	return CredentialKey{UserID: c.UserID, Provider: c.Provider}
}

// OAuthCredentials stores OAuth tokens for a specific user account.
type OAuthCredentials struct {
	// AccessToken is the bearer token for API access.
	AccessToken string `json:"access_token"`
	// RefreshToken is used to obtain new access tokens.
	RefreshToken string `json:"refresh_token,omitempty"`
	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`
	// Expiry is when the access token expires.
	Expiry time.Time `json:"expiry,omitempty"`
}

// IsExpired returns true if the OAuth access token has expired.
func (c *OAuthCredentials) IsExpired() bool {
	if c.Expiry.IsZero() {
		return false
	}
	return time.Now().After(c.Expiry)
}

// ExpiresWithin returns true if the token expires within d.
func (c *OAuthCredentials) ExpiresWithin(d time.Duration) bool {
	if c.Expiry.IsZero() {
		return false
	}
	return time.Until(c.Expiry) < d
}

// IsAuthenticated returns true if the credentials contain an access token.
func (c *Credentials) IsAuthenticated() bool {
	return c.OAuth != nil && c.OAuth.AccessToken != ""
}

// NeedsRefresh returns true if the token is stale within buffer and can be refreshed.
func (c *Credentials) NeedsRefresh(buffer time.Duration) bool {
	if c.OAuth == nil || c.OAuth.RefreshToken == "" {
		return false
	}
	return c.OAuth.IsExpired() || c.OAuth.ExpiresWithin(buffer)
}

// GetAccessToken returns the access token, or empty string.
func (c *Credentials) GetAccessToken() string {
	if c.OAuth != nil {
		return c.OAuth.AccessToken
	}
	return ""
}

// HasRefreshToken returns true if a refresh token is available.
func (c *Credentials) HasRefreshToken() bool {
	return c.OAuth != nil && c.OAuth.RefreshToken != ""
}

// AuthorizationRequest carries the per-attempt parameters of an OAuth
// authorization code flow with PKCE.
type AuthorizationRequest struct {
	Provider     string
	State        string
	CodeVerifier string
	RedirectURL  string
}
