package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Column-specific validation errors
var (
	// ErrColumnIDEmpty is returned when a column ID is empty or nil.
	ErrColumnIDEmpty = errors.New("column ID cannot be empty")

	// ErrColumnBoardIDEmpty is returned when a column's board ID is empty or nil.
	ErrColumnBoardIDEmpty = errors.New("column board ID cannot be empty")

	// ErrColumnNameEmpty is returned when a column's name is empty.
	ErrColumnNameEmpty = errors.New("column name cannot be empty")

	// ErrColumnPositionNegative is returned when a column's position is below zero.
	ErrColumnPositionNegative = errors.New("column position cannot be negative")

	// ErrColumnWIPLimitInvalid is returned when a column's WIP limit is zero or negative.
	ErrColumnWIPLimitInvalid = errors.New("column WIP limit must be positive")
)

// Column is an ordered lane within a board holding tasks. Position is the
// 0-based slot among the board's active columns.
type Column struct {
	ID       uuid.UUID `json:"id"`
	BoardID  uuid.UUID `json:"board_id"`
	Name     string    `json:"name"`
	Position int       `json:"position"`

	// StatusID optionally links the column to a workflow status.
	StatusID *uuid.UUID `json:"status_id,omitempty"`

	// WIPLimit caps the number of active tasks the column accepts.
	// Nil means unlimited.
	WIPLimit *int `json:"wip_limit,omitempty"`

	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version guards concurrent placement updates. Every committed change to
	// Position increments it; a stale version at commit means a conflict.
	Version int64 `json:"-"`
}

// NewColumn creates a new Column at the given position on a board.
// Returns an error if validation fails.
func NewColumn(boardID uuid.UUID, name string, position int) (*Column, error) {
	now := time.Now().UTC()
	column := &Column{
		ID:        uuid.New(),
		BoardID:   boardID,
		Name:      strings.TrimSpace(name),
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := column.Validate(); err != nil {
		return nil, err
	}

	return column, nil
}

// Validate checks if the Column has valid data.
func (c *Column) Validate() error {
	if c.ID == uuid.Nil {
		return ErrColumnIDEmpty
	}

	if c.BoardID == uuid.Nil {
		return ErrColumnBoardIDEmpty
	}

	if strings.TrimSpace(c.Name) == "" {
		return ErrColumnNameEmpty
	}

	if c.Position < 0 {
		return ErrColumnPositionNegative
	}

	if c.WIPLimit != nil && *c.WIPLimit <= 0 {
		return ErrColumnWIPLimitInvalid
	}

	return nil
}

// AcceptsTasks reports whether adding n more active tasks to the column would
// stay within its WIP limit. Columns without a limit always accept.
func (c *Column) AcceptsTasks(activeCount, n int) bool {
	if c.WIPLimit == nil {
		return true
	}
	return activeCount+n <= *c.WIPLimit
}
