package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/trellis-kanban/trellis-api/internal/domain"
)

// BoardStore defines the interface for board persistence.
type BoardStore interface {
	// Create saves a new board.
	Create(ctx context.Context, board *domain.Board) error

	// GetByID retrieves a board by its ID.
	// Returns ErrBoardNotFound if the board does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error)

	// Update saves changes to an existing board (name, archived flag).
	// Returns ErrBoardNotFound if the board does not exist.
	Update(ctx context.Context, board *domain.Board) error

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) BoardStore
}
