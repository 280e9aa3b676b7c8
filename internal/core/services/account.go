package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driving"
	"github.com/custodia-labs/mindkeep/internal/logger"
)

// Ensure AccountService implements the interface.
var _ driving.AccountService = (*AccountService)(nil)

// AccountService links a Gmail mailbox to the user that owns it.
type AccountService struct {
	creds  driving.CredentialsService
	users  driving.UserService
	lookup driven.MailAccountLookup
}

// NewAccountService creates an account service.
func NewAccountService(
	creds driving.CredentialsService, users driving.UserService, lookup driven.MailAccountLookup,
) *AccountService {
	return &AccountService{creds: creds, users: users, lookup: lookup}
}

// ConnectGmail exchanges code, looks up the mailbox address with the new
// tokens and stores them under the user for that address.
func (s *AccountService) ConnectGmail(
	ctx context.Context, code string, req domain.AuthorizationRequest,
) (*domain.User, error) {
	var user *domain.User
	resolve := func(ctx context.Context, token *domain.OAuthCredentials) (string, string, error) {
		address, err := s.lookup(ctx, staticToken(token.AccessToken))
		if err != nil {
			return "", "", fmt.Errorf("look up mailbox address: %w", err)
		}
		user, err = s.users.EnsureUser(ctx, address, "")
		if err != nil {
			return "", "", err
		}
		return user.ID, address, nil
	}

	if _, err := s.creds.Link(ctx, domain.CredentialProviderGmail, code, req, resolve); err != nil {
		return nil, err
	}
	logger.Info("Connected Gmail account %s to user %s", user.Email, user.ID)
	return user, nil
}

// staticToken serves one access token that is known to be fresh.
type staticToken string

func (t staticToken) GetToken(context.Context) (string, error) { return string(t), nil }
func (t staticToken) IsAuthenticated() bool                    { return t != "" }
