package driven

import (
	"context"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

// MailProvider lists and fetches messages from a mailbox.
// Failures from the upstream API are wrapped with domain.ErrUpstreamUnavailable,
// domain.ErrRateLimited or domain.ErrAuthRequired.
type MailProvider interface {
	// ListMessageIDs returns up to max message IDs matching query, newest first.
	ListMessageIDs(ctx context.Context, query string, max int) ([]string, error)

	// GetMessage fetches a full message with headers and MIME parts.
	GetMessage(ctx context.Context, id string) (*domain.MailMessage, error)
}

// MailProviderFactory builds a MailProvider authenticated with tokens.
type MailProviderFactory func(ctx context.Context, tokens TokenProvider) (MailProvider, error)

// MailAccountLookup returns the mailbox address the tokens belong to.
type MailAccountLookup func(ctx context.Context, tokens TokenProvider) (string, error)
