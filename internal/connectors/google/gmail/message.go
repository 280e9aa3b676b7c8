package gmail

import (
	"time"

	"google.golang.org/api/gmail/v1"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

// toMailMessage converts a full-format Gmail message.
// Body data stays base64url-encoded, as the API returns it.
func toMailMessage(msg *gmail.Message) *domain.MailMessage {
	out := &domain.MailMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		Headers:  make(map[string]string),
	}
	if msg.InternalDate > 0 {
		out.ReceivedAt = time.UnixMilli(msg.InternalDate).UTC()
	}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			// First occurrence wins.
			if _, ok := out.Headers[h.Name]; !ok {
				out.Headers[h.Name] = h.Value
			}
		}
		out.Payload = toMailPart(msg.Payload)
	}
	return out
}

func toMailPart(part *gmail.MessagePart) domain.MailPart {
	out := domain.MailPart{
		MimeType: part.MimeType,
		Filename: part.Filename,
	}
	if part.Body != nil {
		out.Data = part.Body.Data
	}
	for _, child := range part.Parts {
		if child != nil {
			out.Parts = append(out.Parts, toMailPart(child))
		}
	}
	return out
}
