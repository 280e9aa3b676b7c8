package domain

import "time"

// User is an account that owns notes, emails and tasks.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

// Note is a free-text note submitted by a user.
type Note struct {
	ID        string
	OwnerID   string
	Text      string
	CreatedAt time.Time
}

// Document returns the note as a chunkable document.
func (n Note) Document() Document {
	return Document{
		ID:        n.ID,
		OwnerID:   n.OwnerID,
		Kind:      DocumentKindNote,
		Body:      n.Text,
		CreatedAt: n.CreatedAt,
	}
}

// SimilarNote is a prior note retrieved by embedding similarity.
type SimilarNote struct {
	NoteID string
	Text   string
	Score  float64
}
