package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question        string `json:"question" jsonschema:"the question to answer from notes and email"`
	ContentType     string `json:"content_type,omitempty" jsonschema:"all, emails or notes (default all)"`
	MaxContextItems int    `json:"max_context_items,omitempty" jsonschema:"number of chunks to retrieve (default 25)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Success     bool            `json:"success"`
	Answer      string          `json:"answer"`
	Reason      string          `json:"reason,omitempty"`
	ContextUsed int             `json:"context_used"`
	Sources     []ContextOutput `json:"sources"`
}

// ContextOutput is one retrieved chunk cited by an answer.
type ContextOutput struct {
	DocumentID string  `json:"document_id"`
	Type       string  `json:"type"`
	Subject    string  `json:"subject,omitempty"`
	Score      float64 `json:"score"`
}

// AddNoteInput is the input schema for the add_note tool.
type AddNoteInput struct {
	Text string `json:"text" jsonschema:"the note text"`
}

// AddNoteOutput is the output schema for the add_note tool.
type AddNoteOutput struct {
	NoteID        string   `json:"note_id"`
	Created       []string `json:"created"`
	Failed        []string `json:"failed,omitempty"`
	Relationships int      `json:"relationships"`
}

// ListTasksInput is the input schema for the list_tasks tool.
type ListTasksInput struct {
	IncludeCompleted bool `json:"include_completed,omitempty" jsonschema:"include completed tasks"`
}

// ListTasksOutput is the output schema for the list_tasks tool.
type ListTasksOutput struct {
	Tasks []TaskOutput `json:"tasks"`
	Count int          `json:"count"`
}

// TaskOutput is one task.
type TaskOutput struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	Completed   bool   `json:"completed"`
}

// CompleteTaskInput is the input schema for the complete_task tool.
type CompleteTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"id of the task to complete"`
}

// CompleteTaskOutput is the output schema for the complete_task tool.
type CompleteTaskOutput struct {
	TaskID    string `json:"task_id"`
	Completed bool   `json:"completed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using the user's notes and email",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_note",
		Description: "Save a note and extract tasks, reminders and diary entries from it",
	}, s.handleAddNote)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List calendar events and reminders extracted from notes",
	}, s.handleListTasks)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task as completed",
	}, s.handleCompleteTask)
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	contentType := domain.ContentType(input.ContentType)
	if contentType == "" {
		contentType = domain.ContentTypeAll
	}

	answer, err := s.ports.QA.Ask(ctx, domain.AskRequest{
		UserID:          s.ports.OwnerID,
		Question:        input.Question,
		ContentType:     contentType,
		MaxContextItems: input.MaxContextItems,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Success:     answer.Success,
		Answer:      answer.Answer,
		Reason:      string(answer.Reason),
		ContextUsed: answer.ContextUsed,
		Sources:     make([]ContextOutput, len(answer.ContextItems)),
	}
	for i, item := range answer.ContextItems {
		output.Sources[i] = ContextOutput{
			DocumentID: item.DocumentID,
			Type:       item.Type,
			Subject:    item.Subject,
			Score:      item.Score,
		}
	}
	return nil, output, nil
}

func (s *Server) handleAddNote(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AddNoteInput,
) (*mcp.CallToolResult, AddNoteOutput, error) {
	if s.ports.Ingest == nil {
		return nil, AddNoteOutput{}, fmt.Errorf("add_note: %w", ErrServiceUnavailable)
	}
	result, err := s.ports.Ingest.IngestNote(ctx, s.ports.OwnerID, input.Text)
	if err != nil {
		return nil, AddNoteOutput{}, err
	}

	output := AddNoteOutput{
		NoteID:        result.NoteID,
		Created:       result.CreatedArtifacts,
		Relationships: len(result.Relationships),
	}
	if output.Created == nil {
		output.Created = []string{}
	}
	for _, f := range result.Failures {
		output.Failed = append(output.Failed, f.Unit)
	}
	return nil, output, nil
}

func (s *Server) handleListTasks(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListTasksInput,
) (*mcp.CallToolResult, ListTasksOutput, error) {
	if s.ports.Tasks == nil {
		return nil, ListTasksOutput{}, fmt.Errorf("list_tasks: %w", ErrServiceUnavailable)
	}
	tasks, err := s.ports.Tasks.ListTasks(ctx, s.ports.OwnerID, input.IncludeCompleted)
	if err != nil {
		return nil, ListTasksOutput{}, err
	}

	output := ListTasksOutput{
		Tasks: make([]TaskOutput, len(tasks)),
		Count: len(tasks),
	}
	for i := range tasks {
		output.Tasks[i] = TaskOutput{
			ID:          tasks[i].ID,
			Type:        string(tasks[i].Type),
			Title:       tasks[i].Title,
			Description: tasks[i].Description,
			DueDate:     tasks[i].DueDate,
			Completed:   tasks[i].Completed,
		}
	}
	return nil, output, nil
}

func (s *Server) handleCompleteTask(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CompleteTaskInput,
) (*mcp.CallToolResult, CompleteTaskOutput, error) {
	if s.ports.Tasks == nil {
		return nil, CompleteTaskOutput{}, fmt.Errorf("complete_task: %w", ErrServiceUnavailable)
	}
	err := s.ports.Tasks.CompleteTask(ctx, s.ports.OwnerID, input.TaskID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, CompleteTaskOutput{}, fmt.Errorf("task %s not found", input.TaskID)
	}
	if err != nil {
		return nil, CompleteTaskOutput{}, err
	}
	return nil, CompleteTaskOutput{TaskID: input.TaskID, Completed: true}, nil
}
