package domain

import (
	"encoding/base64"
	"strings"
	"time"
)

// Email is a message pulled from the mail provider.
type Email struct {
	// ID is the provider message ID. Unique per owner.
	ID string

	// OwnerID is the user the mailbox belongs to.
	OwnerID string

	ThreadID string
	Subject  string
	Sender   string
	Snippet  string

	// Content is the extracted plain-text body.
	Content string

	// ReceivedAt is the provider's internal date.
	ReceivedAt time.Time

	// Processed is set once the email has been chunked and embedded.
	Processed bool

	// SyncedAt is when the email was stored.
	SyncedAt time.Time
}

// EmbeddingText is the text handed to the chunker for an email.
// The content is capped at MaxEmailContentChars characters.
func (e Email) EmbeddingText() string {
	content := []rune(e.Content)
	if len(content) > MaxEmailContentChars {
		content = content[:MaxEmailContentChars]
	}
	return "Subject: " + e.Subject + "\nContent: " + string(content)
}

// Document returns the email as a chunkable document.
func (e Email) Document() Document {
	return Document{
		ID:        e.ID,
		OwnerID:   e.OwnerID,
		Kind:      DocumentKindEmail,
		Body:      e.EmbeddingText(),
		Subject:   e.Subject,
		Sender:    e.Sender,
		CreatedAt: e.ReceivedAt,
	}
}

// MaxEmailContentChars bounds the email body used for embedding.
const MaxEmailContentChars = 8000

// EmailStats summarises the sync state of a mailbox.
type EmailStats struct {
	Total       int
	Processed   int
	Unprocessed int
	LastSync    *time.Time
}

// MailMessage is the MIME-like structure returned by the mail provider.
type MailMessage struct {
	ID         string
	ThreadID   string
	Snippet    string
	Headers    map[string]string
	Payload    MailPart
	ReceivedAt time.Time
}

// Header returns a header value, or empty string.
func (m MailMessage) Header(name string) string {
	return m.Headers[name]
}

// MailPart is one node of a possibly nested MIME tree.
// Data holds the base64url-encoded body as sent by the provider.
type MailPart struct {
	MimeType string
	Filename string
	Data     string
	Parts    []MailPart
}

// SyncResult reports a mail sync run.
type SyncResult struct {
	Fetched    int
	New        int
	Duplicates int
	Batch      EmailBatchResult
}

// NoContentPlaceholder is stored when a message carries no readable body.
const NoContentPlaceholder = "No content available"

// Body returns the message text. A text/plain part is preferred, then a
// text/html part (left for the email cleaner to strip), then the snippet.
// Attachments are skipped.
func (m MailMessage) Body() string {
	if text := findPart(m.Payload, "text/plain"); text != "" {
		return text
	}
	if text := findPart(m.Payload, "text/html"); text != "" {
		return text
	}
	if strings.TrimSpace(m.Snippet) != "" {
		return m.Snippet
	}
	return NoContentPlaceholder
}

// findPart returns the first decoded non-empty body of mimeType, depth first.
func findPart(part MailPart, mimeType string) string {
	if part.Filename == "" && strings.HasPrefix(strings.ToLower(part.MimeType), mimeType) && part.Data != "" {
		if text := strings.TrimSpace(DecodeBase64URL(part.Data)); text != "" {
			return text
		}
	}
	for _, child := range part.Parts {
		if text := findPart(child, mimeType); text != "" {
			return text
		}
	}
	return ""
}

// DecodeBase64URL decodes base64url data with or without padding.
// Undecodable data yields an empty string.
func DecodeBase64URL(data string) string {
	data = strings.TrimRight(data, "=")
	decoded, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return ""
	}
	return string(decoded)
}

// ToEmail converts a fetched message into an Email owned by ownerID.
func (m MailMessage) ToEmail(ownerID string) Email {
	subject := m.Header("Subject")
	if subject == "" {
		subject = "No Subject"
	}
	sender := m.Header("From")
	if sender == "" {
		sender = "Unknown Sender"
	}
	return Email{
		ID:         m.ID,
		OwnerID:    ownerID,
		ThreadID:   m.ThreadID,
		Subject:    subject,
		Sender:     sender,
		Snippet:    m.Snippet,
		Content:    m.Body(),
		ReceivedAt: m.ReceivedAt,
	}
}
