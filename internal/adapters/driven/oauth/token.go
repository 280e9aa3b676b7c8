// Package oauth provides OAuth token exchange and refresh for external providers.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
)

// Ensure GoogleRefresher implements the interface.
var _ driven.TokenRefresher = (*GoogleRefresher)(nil)

// GmailReadonlyScope grants read access to the mailbox.
const GmailReadonlyScope = "https://www.googleapis.com/auth/gmail.readonly"

// requestTimeout bounds each call to the token endpoint.
const requestTimeout = 30 * time.Second

// GoogleConfig holds the OAuth client registered with Google.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string

	// Endpoint overrides google.Endpoint. Used by tests.
	Endpoint *oauth2.Endpoint

	// HTTPClient overrides the client used for token requests.
	HTTPClient *http.Client
}

// GoogleRefresher exchanges authorization codes and refresh tokens with Google.
type GoogleRefresher struct {
	cfg    oauth2.Config
	client *http.Client
}

// NewGoogleRefresher creates a refresher for the given client.
func NewGoogleRefresher(cfg GoogleConfig) (*GoogleRefresher, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: gmail.client_id is not configured", domain.ErrInvalidInput)
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{GmailReadonlyScope}
	}
	endpoint := google.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &GoogleRefresher{
		cfg: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		client: client,
	}, nil
}

// AuthCodeURL returns the consent URL with an S256 PKCE challenge.
// Offline access and forced consent make Google return a refresh token.
func (g *GoogleRefresher) AuthCodeURL(req domain.AuthorizationRequest) string {
	cfg := g.config(req.RedirectURL)
	return cfg.AuthCodeURL(req.State,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(req.CodeVerifier),
	)
}

// Exchange trades an authorization code for tokens using the PKCE verifier.
func (g *GoogleRefresher) Exchange(
	ctx context.Context, code string, req domain.AuthorizationRequest,
) (*domain.OAuthCredentials, error) {
	cfg := g.config(req.RedirectURL)
	opts := []oauth2.AuthCodeOption{}
	if req.CodeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(req.CodeVerifier))
	}
	token, err := cfg.Exchange(g.withClient(ctx), code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrAuthRequired, describe(err))
	}
	return toCredentials(token), nil
}

// Refresh obtains a new access token from a refresh token.
func (g *GoogleRefresher) Refresh(ctx context.Context, refreshToken string) (*domain.OAuthCredentials, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: empty refresh token", domain.ErrTokenRefreshFailed)
	}
	// An already-expired token forces the source to hit the endpoint.
	stale := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	token, err := g.cfg.TokenSource(g.withClient(ctx), stale).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTokenRefreshFailed, describe(err))
	}
	return toCredentials(token), nil
}

func (g *GoogleRefresher) config(redirectURL string) oauth2.Config {
	cfg := g.cfg
	cfg.RedirectURL = redirectURL
	return cfg
}

func (g *GoogleRefresher) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, g.client)
}

// describe extracts the provider's error code from a token endpoint failure.
func describe(err error) string {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.ErrorCode != "" {
			if rerr.ErrorDescription != "" {
				return rerr.ErrorCode + " - " + rerr.ErrorDescription
			}
			return rerr.ErrorCode
		}
		if rerr.Response != nil {
			return fmt.Sprintf("token request failed with status %d", rerr.Response.StatusCode)
		}
	}
	return err.Error()
}

func toCredentials(token *oauth2.Token) *domain.OAuthCredentials {
	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &domain.OAuthCredentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    tokenType,
		Expiry:       token.Expiry,
	}
}
