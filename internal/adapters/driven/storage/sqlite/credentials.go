package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
)

type credentialsStore struct {
	store *Store
}

var _ driven.CredentialsStore = (*credentialsStore)(nil)

// Save stores or updates credentials.
func (s *credentialsStore) Save(ctx context.Context, creds domain.Credentials) error {
	if creds.UserID == "" || creds.Provider == "" {
		return domain.ErrInvalidInput
	}

	oauthJSON, err := json.Marshal(creds.OAuth)
	if err != nil {
		return fmt.Errorf("marshalling oauth credentials: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO credentials
			(user_id, provider, account_identifier, oauth, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, provider) DO UPDATE SET
			account_identifier = excluded.account_identifier,
			oauth = excluded.oauth,
			updated_at = excluded.updated_at
	`, creds.UserID, creds.Provider, creds.AccountIdentifier,
		string(oauthJSON), creds.CreatedAt.UTC(), creds.UpdatedAt.UTC())

	if err != nil {
		return unavailable("saving credentials", err)
	}
	return nil
}

// Get retrieves credentials by key.
func (s *credentialsStore) Get(ctx context.Context, key domain.CredentialKey) (*domain.Credentials, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT user_id, provider, account_identifier, oauth, created_at, updated_at
		FROM credentials WHERE user_id = ? AND provider = ?
	`, key.UserID, key.Provider)

	return scanCredentials(row)
}

// Delete removes credentials by key.
func (s *credentialsStore) Delete(ctx context.Context, key domain.CredentialKey) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE user_id = ? AND provider = ?", key.UserID, key.Provider)
	if err != nil {
		return unavailable("deleting credentials", err)
	}
	return nil
}

// scanCredentials scans a single credentials row.
func scanCredentials(row *sql.Row) (*domain.Credentials, error) {
	var creds domain.Credentials
	var oauthJSON sql.NullString

	if err := row.Scan(&creds.UserID, &creds.Provider, &creds.AccountIdentifier,
		&oauthJSON, &creds.CreatedAt, &creds.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, unavailable("scanning credentials", err)
	}

	if oauthJSON.Valid && oauthJSON.String != jsonNull {
		var oauth domain.OAuthCredentials
		if err := json.Unmarshal([]byte(oauthJSON.String), &oauth); err != nil {
			return nil, fmt.Errorf("unmarshalling oauth credentials: %w", err)
		}
		creds.OAuth = &oauth
	}

	return &creds, nil
}
