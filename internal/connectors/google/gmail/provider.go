package gmail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/custodia-labs/mindkeep/internal/connectors/google"
	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.MailProvider = (*Provider)(nil)

// me addresses the authenticated mailbox.
const me = "me"

// maxPageSize is the largest page Gmail returns from messages.list.
const maxPageSize = 500

// Provider lists and fetches Gmail messages for one authenticated user.
type Provider struct {
	svc     *gmail.Service
	limiter *google.RateLimiter

	// timeout bounds each API call. Zero means no bound.
	timeout time.Duration
}

// NewProvider wraps a Gmail service. A nil limiter uses the Gmail defaults.
func NewProvider(svc *gmail.Service, limiter *google.RateLimiter) *Provider {
	if limiter == nil {
		limiter = google.NewRateLimiter()
	}
	return &Provider{svc: svc, limiter: limiter}
}

// SetTimeout bounds every subsequent API call. Zero disables the bound.
func (p *Provider) SetTimeout(d time.Duration) {
	p.timeout = d
}

// NewFactory returns a MailProviderFactory that builds Gmail providers whose
// calls are bounded by timeout. opts are passed to the Gmail client after the
// token source.
func NewFactory(timeout time.Duration, opts ...option.ClientOption) driven.MailProviderFactory {
	return func(ctx context.Context, tokens driven.TokenProvider) (driven.MailProvider, error) {
		svc, err := google.NewGmailService(ctx, google.NewTokenSource(ctx, tokens), opts...)
		if err != nil {
			return nil, err
		}
		p := NewProvider(svc, nil)
		p.SetTimeout(timeout)
		return p, nil
	}
}

// NewAccountLookup returns a MailAccountLookup backed by users.getProfile.
func NewAccountLookup(timeout time.Duration, opts ...option.ClientOption) driven.MailAccountLookup {
	return func(ctx context.Context, tokens driven.TokenProvider) (string, error) {
		svc, err := google.NewGmailService(ctx, google.NewTokenSource(ctx, tokens), opts...)
		if err != nil {
			return "", err
		}
		p := NewProvider(svc, nil)
		p.SetTimeout(timeout)
		return p.Profile(ctx)
	}
}

// ListMessageIDs returns up to max message IDs matching query, newest first.
func (p *Provider) ListMessageIDs(ctx context.Context, query string, max int) ([]string, error) {
	if max <= 0 {
		return nil, nil
	}
	ids := make([]string, 0, max)
	pageToken := ""
	for len(ids) < max {
		pageSize := min(max-len(ids), maxPageSize)
		call := p.svc.Users.Messages.List(me).Q(query).MaxResults(int64(pageSize))
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var resp *gmail.ListMessagesResponse
		err := p.do(ctx, func(ctx context.Context) (err error) {
			resp, err = call.Context(ctx).Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
			if len(ids) == max {
				break
			}
		}
		if resp.NextPageToken == "" || len(resp.Messages) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}
	return ids, nil
}

// GetMessage fetches a message in full format.
func (p *Provider) GetMessage(ctx context.Context, id string) (*domain.MailMessage, error) {
	var msg *gmail.Message
	err := p.do(ctx, func(ctx context.Context) (err error) {
		msg, err = p.svc.Users.Messages.Get(me, id).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return toMailMessage(msg), nil
}

// Profile returns the mailbox address.
func (p *Provider) Profile(ctx context.Context) (string, error) {
	var profile *gmail.Profile
	err := p.do(ctx, func(ctx context.Context) (err error) {
		profile, err = p.svc.Users.GetProfile(me).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("get profile: %w", err)
	}
	if profile.EmailAddress == "" {
		return "", fmt.Errorf("%w: gmail profile has no address", domain.ErrUpstreamUnavailable)
	}
	return profile.EmailAddress, nil
}

// do waits for the limiter, runs call under the provider timeout and maps its error.
// A 429 starts a backoff window for later calls.
func (p *Provider) do(ctx context.Context, call func(ctx context.Context) error) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if p.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
	}
	defer cancel()

	err := call(callCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: gmail: no response after %s",
			domain.ErrUpstreamTimeout, domain.ErrUpstreamUnavailable, p.timeout)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && google.IsRateLimited(err) {
		p.limiter.RecordRateLimitError(google.RetryAfter(gerr.Header))
	}
	return google.WrapError(err)
}
