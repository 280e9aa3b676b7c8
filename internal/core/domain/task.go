package domain

import "time"

// TaskType identifies the kind of task created from a note.
type TaskType string

// Task types.
const (
	TaskTypeCalendar TaskType = "calendar"
	TaskTypeReminder TaskType = "reminder"
)

// Default titles used when the model leaves a title empty.
const (
	DefaultCalendarTitle = "Calendar Event"
	DefaultReminderTitle = "Reminder"
)

// Task is a calendar event or reminder derived from a note.
type Task struct {
	ID          string
	OwnerID     string
	NoteID      string
	Type        TaskType
	Title       string
	Description string
	// DueDate is DueDateLayout formatted or empty.
	DueDate     string
	Completed   bool
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// DiaryEntry is a logged diary entry. Diary entries are the nodes of the idea graph.
type DiaryEntry struct {
	ID        string
	OwnerID   string
	NoteID    string
	Content   string
	Mood      string
	Tags      []string
	CreatedAt time.Time
}
