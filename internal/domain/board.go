package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Board-specific validation errors
var (
	// ErrBoardIDEmpty is returned when a board ID is empty or nil.
	ErrBoardIDEmpty = errors.New("board ID cannot be empty")

	// ErrBoardNameEmpty is returned when a board's name is empty.
	ErrBoardNameEmpty = errors.New("board name cannot be empty")

	// ErrBoardNameTooLong is returned when a board's name exceeds the limit.
	ErrBoardNameTooLong = errors.New("board name cannot exceed 200 characters")
)

// MaxBoardNameLength is the maximum number of characters in a board name.
const MaxBoardNameLength = 200

// Board is the top-level container of columns and tasks, scoped to a set of
// member users. Archived boards are excluded from mutation and broadcast.
type Board struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBoard creates a new Board with the given name.
// It generates a new UUID and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewBoard(name string) (*Board, error) {
	now := time.Now().UTC()
	board := &Board{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := board.Validate(); err != nil {
		return nil, err
	}

	return board, nil
}

// Validate checks if the Board has valid data.
func (b *Board) Validate() error {
	if b.ID == uuid.Nil {
		return ErrBoardIDEmpty
	}

	if strings.TrimSpace(b.Name) == "" {
		return ErrBoardNameEmpty
	}

	if len(b.Name) > MaxBoardNameLength {
		return ErrBoardNameTooLong
	}

	return nil
}

// Rename updates the board's name and bumps the UpdatedAt timestamp.
// A rejected name leaves the board unchanged.
func (b *Board) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrBoardNameEmpty
	}
	if len(name) > MaxBoardNameLength {
		return ErrBoardNameTooLong
	}

	b.Name = name
	b.UpdatedAt = time.Now().UTC()
	return nil
}
