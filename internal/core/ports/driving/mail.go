package driving

import (
	"context"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

// MailService synchronises a mailbox into the index.
type MailService interface {
	// SyncMail fetches up to maxEmails recent messages and ingests the new ones.
	SyncMail(ctx context.Context, ownerID string, maxEmails int) (*domain.SyncResult, error)

	// EmailStats summarises the owner's synced mailbox.
	EmailStats(ctx context.Context, ownerID string) (*domain.EmailStats, error)
}
