package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/trellis-kanban/trellis-api/internal/domain"
)

// ColumnPlacement is one entry of a column reorder batch. ExpectedVersion is
// the version observed at load time; the update only lands if the row still
// carries that version.
type ColumnPlacement struct {
	ColumnID        uuid.UUID
	Position        int
	ExpectedVersion int64
}

// ColumnStore defines the interface for column persistence.
type ColumnStore interface {
	// Create saves a new column.
	Create(ctx context.Context, column *domain.Column) error

	// GetByID retrieves a column by its ID.
	// Returns ErrColumnNotFound if the column does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Column, error)

	// ListActiveByBoard returns the board's active (non-archived, non-deleted)
	// columns ordered by position.
	ListActiveByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Column, error)

	// Update saves changes to an existing column (name, WIP limit, status link,
	// archived flag). Position changes go through ApplyPlacements instead.
	// Returns ErrColumnNotFound if the column does not exist.
	Update(ctx context.Context, column *domain.Column) error

	// ApplyPlacements assigns new positions to the given columns. Every
	// placement is guarded by its expected version; a single stale row fails
	// the whole batch with ErrConflict.
	// MUST run inside a transaction obtained via RunInTransaction.
	ApplyPlacements(ctx context.Context, placements []ColumnPlacement) error

	// BumpVersion increments the column's version, guarded by the version
	// observed at load time. Writers bump every column whose active task set
	// they change, so concurrent writers that computed placements from the
	// same snapshot collide here instead of committing overlapping indices.
	// Returns ErrConflict when the version is stale and ErrColumnNotFound
	// when the column does not exist.
	// MUST run inside a transaction obtained via RunInTransaction.
	BumpVersion(ctx context.Context, id uuid.UUID, expectedVersion int64) error

	// MarkDeleted soft-deletes a column. Deleted columns are excluded from
	// active listings and invariant computations.
	// Returns ErrColumnNotFound if the column does not exist.
	MarkDeleted(ctx context.Context, id uuid.UUID) error

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) ColumnStore
}
