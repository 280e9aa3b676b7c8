package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driving"
	"github.com/custodia-labs/mindkeep/internal/logger"
)

// Ensure CredentialsService implements the interface.
var _ driving.CredentialsService = (*CredentialsService)(nil)

// CredentialsService manages per-user OAuth credentials.
// All reads and writes for one key are serialised, so concurrent callers
// never refresh the same token twice.
type CredentialsService struct {
	store      driven.CredentialsStore
	refreshers map[string]driven.TokenRefresher
	buffer     time.Duration
	now        func() time.Time

	mu    sync.Mutex
	locks map[domain.CredentialKey]*sync.Mutex
}

// NewCredentialsService creates a credentials service.
// refreshers maps a provider name to the identity provider client for it.
func NewCredentialsService(
	store driven.CredentialsStore, refreshers map[string]driven.TokenRefresher,
) *CredentialsService {
	if refreshers == nil {
		refreshers = make(map[string]driven.TokenRefresher)
	}
	return &CredentialsService{
		store:      store,
		refreshers: refreshers,
		buffer:     domain.DefaultRefreshBuffer,
		now:        time.Now,
		locks:      make(map[domain.CredentialKey]*sync.Mutex),
	}
}

// lock returns the held mutex for key. Callers must unlock it.
func (s *CredentialsService) lock(key domain.CredentialKey) *sync.Mutex {
	s.mu.Lock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m
}

// Get returns valid credentials, refreshing them first if they are stale.
func (s *CredentialsService) Get(ctx context.Context, key domain.CredentialKey) (*domain.Credentials, error) {
	m := s.lock(key)
	defer m.Unlock()

	creds, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if !creds.NeedsRefresh(s.buffer) {
		return creds, nil
	}
	logger.Debug("Credentials %s are stale, refreshing", key)
	return s.refreshLocked(ctx, creds)
}

// Refresh forces a token refresh.
func (s *CredentialsService) Refresh(ctx context.Context, key domain.CredentialKey) (*domain.Credentials, error) {
	m := s.lock(key)
	defer m.Unlock()

	creds, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.refreshLocked(ctx, creds)
}

// Put stores credentials.
func (s *CredentialsService) Put(ctx context.Context, creds domain.Credentials) error {
	if creds.UserID == "" || creds.Provider == "" {
		return fmt.Errorf("%w: user and provider are required", domain.ErrInvalidInput)
	}
	m := s.lock(creds.Key())
	defer m.Unlock()
	return s.saveLocked(ctx, creds)
}

// BeginAuthorization prepares an authorization code flow with fresh state and PKCE verifier.
func (s *CredentialsService) BeginAuthorization(
	provider, redirectURL string,
) (*domain.AuthorizationRequest, string, error) {
	refresher, ok := s.refreshers[provider]
	if !ok {
		return nil, "", fmt.Errorf("%w: no oauth client for provider %q", domain.ErrInvalidInput, provider)
	}
	state, err := generateState()
	if err != nil {
		return nil, "", fmt.Errorf("generate state: %w", err)
	}
	verifier, err := generateCodeVerifier()
	if err != nil {
		return nil, "", fmt.Errorf("generate code verifier: %w", err)
	}
	req := &domain.AuthorizationRequest{
		Provider:     provider,
		State:        state,
		CodeVerifier: verifier,
		RedirectURL:  redirectURL,
	}
	return req, refresher.AuthCodeURL(*req), nil
}

// Exchange trades an authorization code for tokens and stores them under key.
func (s *CredentialsService) Exchange(
	ctx context.Context, key domain.CredentialKey, code string, req domain.AuthorizationRequest,
) (*domain.Credentials, error) {
	if key.UserID == "" {
		return nil, fmt.Errorf("%w: user is required", domain.ErrInvalidInput)
	}
	return s.Link(ctx, key.Provider, code, req, func(context.Context, *domain.OAuthCredentials) (string, string, error) {
		return key.UserID, "", nil
	})
}

// Link trades an authorization code for tokens and stores them under the
// user that resolve returns for those tokens. resolve also returns the
// account address, which is kept from the stored credentials when empty.
func (s *CredentialsService) Link(
	ctx context.Context, provider, code string, req domain.AuthorizationRequest, resolve driving.AccountResolver,
) (*domain.Credentials, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is required", domain.ErrInvalidInput)
	}
	refresher, ok := s.refreshers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: no oauth client for provider %q", domain.ErrInvalidInput, provider)
	}
	token, err := refresher.Exchange(ctx, code, req)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	userID, account, err := resolve(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("resolve account: %w", err)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: no user for %s tokens", domain.ErrInvalidInput, provider)
	}

	key := domain.CredentialKey{UserID: userID, Provider: provider}
	m := s.lock(key)
	defer m.Unlock()

	creds := domain.Credentials{UserID: key.UserID, Provider: key.Provider, AccountIdentifier: account, OAuth: token}
	if existing, err := s.store.Get(ctx, key); err == nil {
		creds.CreatedAt = existing.CreatedAt
		if creds.AccountIdentifier == "" {
			creds.AccountIdentifier = existing.AccountIdentifier
		}
		if token.RefreshToken == "" && existing.HasRefreshToken() {
			token.RefreshToken = existing.OAuth.RefreshToken
		}
	}
	if err := s.saveLocked(ctx, creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// TokenProvider returns a token source for key.
func (s *CredentialsService) TokenProvider(key domain.CredentialKey) driven.TokenProvider {
	return &credentialTokenProvider{service: s, key: key}
}

func (s *CredentialsService) load(ctx context.Context, key domain.CredentialKey) (*domain.Credentials, error) {
	if s.store == nil {
		return nil, domain.ErrAuthRequired
	}
	creds, err := s.store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: no %s credentials for user %s", domain.ErrAuthRequired, key.Provider, key.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if !creds.IsAuthenticated() {
		return nil, fmt.Errorf("%w: %s credentials for user %s have no token", domain.ErrAuthRequired, key.Provider, key.UserID)
	}
	return creds, nil
}

func (s *CredentialsService) refreshLocked(ctx context.Context, creds *domain.Credentials) (*domain.Credentials, error) {
	if !creds.HasRefreshToken() {
		return nil, fmt.Errorf("%w: no refresh token for %s", domain.ErrAuthRequired, creds.Key())
	}
	refresher, ok := s.refreshers[creds.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: no oauth client for provider %q", domain.ErrTokenRefreshFailed, creds.Provider)
	}

	token, err := refresher.Refresh(ctx, creds.OAuth.RefreshToken)
	if err != nil {
		logger.Error("refresh %s credentials for user %s: %v", creds.Provider, creds.UserID, err)
		if errors.Is(err, domain.ErrTokenRefreshFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenRefreshFailed, err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = creds.OAuth.RefreshToken
	}

	updated := *creds
	updated.OAuth = token
	if err := s.saveLocked(ctx, updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *CredentialsService) saveLocked(ctx context.Context, creds domain.Credentials) error {
	if s.store == nil {
		return fmt.Errorf("%w: no credentials store", domain.ErrStoreUnavailable)
	}
	now := s.now()
	if creds.CreatedAt.IsZero() {
		creds.CreatedAt = now
	}
	creds.UpdatedAt = now
	if err := s.store.Save(ctx, creds); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// credentialTokenProvider adapts CredentialsService to driven.TokenProvider.
type credentialTokenProvider struct {
	service *CredentialsService
	key     domain.CredentialKey
}

// GetToken returns a valid access token, refreshing it when stale.
func (p *credentialTokenProvider) GetToken(ctx context.Context) (string, error) {
	creds, err := p.service.Get(ctx, p.key)
	if err != nil {
		return "", err
	}
	return creds.GetAccessToken(), nil
}

// IsAuthenticated reports whether credentials with an access token are stored.
func (p *credentialTokenProvider) IsAuthenticated() bool {
	if p.service.store == nil {
		return false
	}
	creds, err := p.service.store.Get(context.Background(), p.key)
	return err == nil && creds.IsAuthenticated()
}
