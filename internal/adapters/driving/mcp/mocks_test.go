package mcp

import (
	"context"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

// mockQAService is a mock implementation of driving.QAService.
type mockQAService struct {
	answer  *domain.Answer
	err     error
	lastReq domain.AskRequest
}

func (m *mockQAService) Ask(_ context.Context, req domain.AskRequest) (*domain.Answer, error) {
	m.lastReq = req
	return m.answer, m.err
}

func (m *mockQAService) SearchEmails(_ context.Context, _, _ string, _ int) ([]domain.ContextItem, error) {
	return nil, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	result    *domain.NoteIngestResult
	err       error
	lastOwner string
	lastText  string
}

func (m *mockIngestService) IngestNote(_ context.Context, ownerID, text string) (*domain.NoteIngestResult, error) {
	m.lastOwner = ownerID
	m.lastText = text
	return m.result, m.err
}

func (m *mockIngestService) IngestEmailBatch(
	_ context.Context, _ string, _ []domain.Email,
) (*domain.EmailBatchResult, error) {
	return &domain.EmailBatchResult{}, m.err
}

// mockTaskService is a mock implementation of driving.TaskService.
type mockTaskService struct {
	tasks         []domain.Task
	err           error
	lastInclude   bool
	completed     []string
	completeOwner string
}

func (m *mockTaskService) ListTasks(_ context.Context, _ string, includeCompleted bool) ([]domain.Task, error) {
	m.lastInclude = includeCompleted
	return m.tasks, m.err
}

func (m *mockTaskService) CompleteTask(_ context.Context, ownerID, taskID string) error {
	m.completeOwner = ownerID
	if m.err != nil {
		return m.err
	}
	m.completed = append(m.completed, taskID)
	return nil
}

// mockIdeaService is a mock implementation of driving.IdeaService.
type mockIdeaService struct {
	graph *domain.IdeaGraph
	err   error
}

func (m *mockIdeaService) IdeaGraph(_ context.Context, _ string) (*domain.IdeaGraph, error) {
	return m.graph, m.err
}

// mockMailService is a mock implementation of driving.MailService.
type mockMailService struct {
	stats *domain.EmailStats
	err   error
}

func (m *mockMailService) SyncMail(_ context.Context, _ string, _ int) (*domain.SyncResult, error) {
	return &domain.SyncResult{}, m.err
}

func (m *mockMailService) EmailStats(_ context.Context, _ string) (*domain.EmailStats, error) {
	return m.stats, m.err
}
