package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mindkeep/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
)

func TestAccountService_ConnectGmail(t *testing.T) {
	creds, refresher, credStore := newCredentialsFixture(t, nil)
	refresher.token.RefreshToken = "rt"
	users := memory.NewStore()

	var seenToken string
	lookup := func(ctx context.Context, tokens driven.TokenProvider) (string, error) {
		tok, err := tokens.GetToken(ctx)
		seenToken = tok
		return "Me@Example.com", err
	}
	svc := NewAccountService(creds, NewUserService(users), lookup)

	user, err := svc.ConnectGmail(context.Background(), "code", domain.AuthorizationRequest{CodeVerifier: "v"})

	require.NoError(t, err)
	assert.Equal(t, "fresh-token", seenToken)
	assert.Equal(t, "me@example.com", user.Email)

	stored, err := credStore.Get(context.Background(), domain.CredentialKey{
		UserID: user.ID, Provider: domain.CredentialProviderGmail,
	})
	require.NoError(t, err)
	assert.Equal(t, "Me@Example.com", stored.AccountIdentifier)
	assert.Equal(t, "rt", stored.OAuth.RefreshToken)

	again, err := svc.ConnectGmail(context.Background(), "code-2", domain.AuthorizationRequest{})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
}

func TestAccountService_ConnectGmail_LookupFails(t *testing.T) {
	creds, _, credStore := newCredentialsFixture(t, nil)
	lookup := func(context.Context, driven.TokenProvider) (string, error) {
		return "", errors.New("profile down")
	}
	svc := NewAccountService(creds, NewUserService(memory.NewStore()), lookup)

	_, err := svc.ConnectGmail(context.Background(), "code", domain.AuthorizationRequest{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile down")
	assert.Zero(t, credStore.Len())
}

func TestAccountService_ConnectGmail_ExchangeFails(t *testing.T) {
	creds, refresher, _ := newCredentialsFixture(t, nil)
	refresher.err = domain.ErrAuthRequired
	called := false
	lookup := func(context.Context, driven.TokenProvider) (string, error) {
		called = true
		return "x@example.com", nil
	}
	svc := NewAccountService(creds, NewUserService(memory.NewStore()), lookup)

	_, err := svc.ConnectGmail(context.Background(), "code", domain.AuthorizationRequest{})

	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.False(t, called)
}
