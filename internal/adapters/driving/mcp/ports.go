package mcp

import (
	"github.com/custodia-labs/mindkeep/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// OwnerID is the user every tool acts for.
	OwnerID string

	// QA answers questions over the indexed corpus.
	QA driving.QAService

	// Ingest stores and indexes notes.
	Ingest driving.IngestService

	// Tasks lists and completes tasks.
	Tasks driving.TaskService

	// Ideas exposes the idea graph.
	Ideas driving.IdeaService

	// Mail reports mailbox sync stats.
	Mail driving.MailService
}

// Validate ensures all required ports are set.
// Only QA and the owner are required; the other tools report
// ErrServiceUnavailable when their port is nil.
func (p *Ports) Validate() error {
	if p.QA == nil {
		return ErrMissingQAService
	}
	if p.OwnerID == "" {
		return ErrMissingOwner
	}
	return nil
}
