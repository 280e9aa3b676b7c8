package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driving"
	"github.com/custodia-labs/mindkeep/internal/logger"
)

// Ensure MailSyncService implements the interface.
var _ driving.MailService = (*MailSyncService)(nil)

// Mail sync defaults.
const (
	DefaultMaxEmails  = 50
	PrimaryInboxQuery = "category:primary"
)

// MailSyncService pulls new messages from the mail provider and hands them to ingestion.
type MailSyncService struct {
	factory driven.MailProviderFactory
	creds   driving.CredentialsService
	emails  driven.EmailStore
	ingest  driving.IngestService
	query   string
}

// NewMailSyncService creates a mail sync service.
func NewMailSyncService(
	factory driven.MailProviderFactory,
	creds driving.CredentialsService,
	emails driven.EmailStore,
	ingest driving.IngestService,
) *MailSyncService {
	return &MailSyncService{
		factory: factory,
		creds:   creds,
		emails:  emails,
		ingest:  ingest,
		query:   PrimaryInboxQuery,
	}
}

// SyncMail fetches up to maxEmails recent messages and ingests the ones not stored yet.
// Returns an error wrapping domain.ErrAuthRequired when the user has not connected Gmail.
func (s *MailSyncService) SyncMail(ctx context.Context, ownerID string, maxEmails int) (*domain.SyncResult, error) {
	logger.Section("Mail Sync")

	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	if maxEmails <= 0 {
		maxEmails = DefaultMaxEmails
	}

	key := domain.CredentialKey{UserID: ownerID, Provider: domain.CredentialProviderGmail}
	if _, err := s.creds.Get(ctx, key); err != nil {
		return nil, err
	}

	provider, err := s.factory(ctx, s.creds.TokenProvider(key))
	if err != nil {
		return nil, fmt.Errorf("create mail provider: %w", err)
	}

	ids, err := provider.ListMessageIDs(ctx, s.query, maxEmails)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	result := &domain.SyncResult{
		Fetched: len(ids),
		Batch:   domain.EmailBatchResult{Outcomes: []domain.DocumentOutcome{}, Errors: []string{}},
	}
	if len(ids) == 0 {
		return result, nil
	}

	existing, err := s.emails.ExistingEmailIDs(ctx, ownerID, ids)
	if err != nil {
		return nil, fmt.Errorf("check existing emails: %w", err)
	}

	emails := make([]domain.Email, 0, len(ids))
	for _, id := range ids {
		if existing[id] {
			result.Duplicates++
			continue
		}
		msg, err := provider.GetMessage(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			logger.Error("fetch message %s for user %s: %v", id, ownerID, err)
			result.Batch.FailedCount++
			result.Batch.Errors = append(result.Batch.Errors, fmt.Sprintf("fetch %s: %v", id, err))
			continue
		}
		emails = append(emails, msg.ToEmail(ownerID))
	}
	result.New = len(emails)
	logger.Info("Mail sync for user %s: %d listed, %d new, %d already stored", ownerID, len(ids), len(emails), result.Duplicates)

	if len(emails) == 0 {
		return result, nil
	}
	batch, err := s.ingest.IngestEmailBatch(ctx, ownerID, emails)
	if batch != nil {
		result.Batch.SyncedCount += batch.SyncedCount
		result.Batch.SkippedCount += batch.SkippedCount
		result.Batch.FailedCount += batch.FailedCount
		result.Batch.Outcomes = append(result.Batch.Outcomes, batch.Outcomes...)
		result.Batch.Errors = append(result.Batch.Errors, batch.Errors...)
	}
	if err != nil {
		return result, fmt.Errorf("ingest emails: %w", err)
	}
	return result, nil
}

// EmailStats summarises the owner's synced mailbox.
func (s *MailSyncService) EmailStats(ctx context.Context, ownerID string) (*domain.EmailStats, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	return s.emails.EmailStats(ctx, ownerID)
}
