package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DueDateLayout is the only accepted due date format.
const DueDateLayout = "2006-01-02 15:04"

// DiaryDecision is the diary sub-result of task extraction.
type DiaryDecision struct {
	ShouldLog bool     `json:"should_log"`
	Content   string   `json:"content"`
	Mood      string   `json:"mood,omitempty"`
	Tags      []string `json:"tags"`
}

// CalendarDecision is the calendar sub-result of task extraction.
type CalendarDecision struct {
	ShouldCreate bool   `json:"should_create"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	// DueDate is either DueDateLayout formatted or empty.
	DueDate string `json:"due_date,omitempty"`
}

// ReminderDecision is the reminder sub-result of task extraction.
type ReminderDecision struct {
	ShouldCreate bool   `json:"should_create"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	// DueDate is either DueDateLayout formatted or empty.
	DueDate string `json:"due_date,omitempty"`
}

// TaskExtractionResult is the structured action plan derived from a note.
type TaskExtractionResult struct {
	Diary    DiaryDecision    `json:"diary"`
	Calendar CalendarDecision `json:"calendar"`
	Reminder ReminderDecision `json:"reminder"`
}

// DefaultTaskExtraction is the all-false result returned when extraction fails.
func DefaultTaskExtraction() TaskExtractionResult {
	return TaskExtractionResult{
		Diary: DiaryDecision{Tags: []string{}},
	}
}

// IsEmpty returns true when no sub-result asks for an artifact.
func (r TaskExtractionResult) IsEmpty() bool {
	return !r.Diary.ShouldLog && !r.Calendar.ShouldCreate && !r.Reminder.ShouldCreate
}

// NormaliseDueDate returns s if it is a well-formed due date, otherwise empty.
// Placeholders such as "null", "none" or "YYYY-MM-DD HH:MM" are treated as absent.
func NormaliseDueDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if _, err := time.Parse(DueDateLayout, s); err != nil {
		return ""
	}
	return s
}

// rawTaskExtraction mirrors TaskExtractionResult with pointer fields so that
// missing keys can be told apart from zero values.
type rawTaskExtraction struct {
	Diary *struct {
		ShouldLog *bool    `json:"should_log"`
		Content   *string  `json:"content"`
		Mood      *string  `json:"mood"`
		Tags      []string `json:"tags"`
	} `json:"diary"`
	Calendar *rawTaskDecision `json:"calendar"`
	Reminder *rawTaskDecision `json:"reminder"`
}

type rawTaskDecision struct {
	ShouldCreate *bool   `json:"should_create"`
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	DueDate      *string `json:"due_date"`
}

// ParseTaskExtraction validates model output against the extraction schema.
// Any structural problem is reported as ErrSchemaViolation.
func ParseTaskExtraction(data []byte) (TaskExtractionResult, error) {
	var raw rawTaskExtraction
	dec := json.NewDecoder(bytes.NewReader(StripCodeFence(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return TaskExtractionResult{}, fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}

	switch {
	case raw.Diary == nil:
		return TaskExtractionResult{}, fmt.Errorf("%w: missing diary", ErrSchemaViolation)
	case raw.Calendar == nil:
		return TaskExtractionResult{}, fmt.Errorf("%w: missing calendar", ErrSchemaViolation)
	case raw.Reminder == nil:
		return TaskExtractionResult{}, fmt.Errorf("%w: missing reminder", ErrSchemaViolation)
	case raw.Diary.ShouldLog == nil:
		return TaskExtractionResult{}, fmt.Errorf("%w: missing diary.should_log", ErrSchemaViolation)
	case raw.Calendar.ShouldCreate == nil:
		return TaskExtractionResult{}, fmt.Errorf("%w: missing calendar.should_create", ErrSchemaViolation)
	case raw.Reminder.ShouldCreate == nil:
		return TaskExtractionResult{}, fmt.Errorf("%w: missing reminder.should_create", ErrSchemaViolation)
	}

	result := DefaultTaskExtraction()
	result.Diary.ShouldLog = *raw.Diary.ShouldLog
	result.Diary.Content = deref(raw.Diary.Content)
	result.Diary.Mood = deref(raw.Diary.Mood)
	if raw.Diary.Tags != nil {
		result.Diary.Tags = raw.Diary.Tags
	}

	result.Calendar = CalendarDecision{
		ShouldCreate: *raw.Calendar.ShouldCreate,
		Title:        deref(raw.Calendar.Title),
		Description:  deref(raw.Calendar.Description),
		DueDate:      NormaliseDueDate(deref(raw.Calendar.DueDate)),
	}
	result.Reminder = ReminderDecision{
		ShouldCreate: *raw.Reminder.ShouldCreate,
		Title:        deref(raw.Reminder.Title),
		Description:  deref(raw.Reminder.Description),
		DueDate:      NormaliseDueDate(deref(raw.Reminder.DueDate)),
	}
	return result, nil
}

// StripCodeFence removes a surrounding ```json fence that models like to add.
func StripCodeFence(data []byte) []byte {
	s := strings.TrimSpace(string(data))
	if !strings.HasPrefix(s, "```") {
		return []byte(s)
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
