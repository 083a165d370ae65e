package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskBoardIDEmpty is returned when a task's board ID is empty or nil.
	ErrTaskBoardIDEmpty = errors.New("task board ID cannot be empty")

	// ErrTaskColumnIDEmpty is returned when a task's column ID is empty or nil.
	ErrTaskColumnIDEmpty = errors.New("task column ID cannot be empty")

	// ErrTaskTitleEmpty is returned when a task's title is empty.
	ErrTaskTitleEmpty = errors.New("task title cannot be empty")

	// ErrTaskPositionNegative is returned when a task's position is below zero.
	ErrTaskPositionNegative = errors.New("task position cannot be negative")

	// ErrTaskPriorityInvalid is returned when a task's priority is not a known value.
	ErrTaskPriorityInvalid = errors.New("task priority is not valid")
)

// Priority ranks a task's urgency within a column.
type Priority string

// Possible task priority values
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task belongs to exactly one board and one column. Position is the 0-based
// slot among the column's active tasks; active tasks of a column always hold
// the contiguous set {0..n-1}.
type Task struct {
	ID       uuid.UUID `json:"id"`
	BoardID  uuid.UUID `json:"board_id"`
	ColumnID uuid.UUID `json:"column_id"`
	Title    string    `json:"title"`
	Position int       `json:"position"`
	Priority Priority  `json:"priority"`

	// StatusID optionally links the task to a workflow status.
	StatusID *uuid.UUID `json:"status_id,omitempty"`

	// TypeID optionally links the task to a task type (bug, story, ...).
	TypeID *uuid.UUID `json:"type_id,omitempty"`

	// AssigneeID must reference an active member of the task's board.
	AssigneeID *uuid.UUID `json:"assignee_id,omitempty"`

	DueDate   *time.Time `json:"due_date,omitempty"`
	Archived  bool       `json:"archived"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Version guards concurrent placement updates, see Column.Version.
	Version int64 `json:"-"`
}

// NewTask creates a new Task at the given position in a column.
// Returns an error if validation fails.
func NewTask(boardID, columnID uuid.UUID, title string, position int, priority Priority) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:        uuid.New(),
		BoardID:   boardID,
		ColumnID:  columnID,
		Title:     strings.TrimSpace(title),
		Position:  position,
		Priority:  priority,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if t.BoardID == uuid.Nil {
		return ErrTaskBoardIDEmpty
	}

	if t.ColumnID == uuid.Nil {
		return ErrTaskColumnIDEmpty
	}

	if strings.TrimSpace(t.Title) == "" {
		return ErrTaskTitleEmpty
	}

	if t.Position < 0 {
		return ErrTaskPositionNegative
	}

	if !t.Priority.Valid() {
		return ErrTaskPriorityInvalid
	}

	return nil
}
