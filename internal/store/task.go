package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/trellis-kanban/trellis-api/internal/domain"
)

// TaskPlacement is one entry of a task placement batch: the task's new
// column and index, guarded by the version observed at load time.
type TaskPlacement struct {
	TaskID          uuid.UUID
	ColumnID        uuid.UUID
	Position        int
	ExpectedVersion int64
}

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	// Create saves a new task.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ListActiveByColumn returns the column's active (non-archived,
	// non-deleted) tasks ordered by position. This is the snapshot the
	// placement engine plans against.
	ListActiveByColumn(ctx context.Context, columnID uuid.UUID) ([]*domain.Task, error)

	// Update saves changes to an existing task (title, priority, due date,
	// status, type, assignee, archived flag). Placement changes go through
	// ApplyPlacements instead.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// ApplyPlacements moves the given tasks to new columns/positions. Every
	// placement is guarded by its expected version; a single stale row fails
	// the whole batch with ErrConflict, so a concurrent move can never commit
	// a half-applied shift.
	// MUST run inside a transaction obtained via RunInTransaction.
	ApplyPlacements(ctx context.Context, placements []TaskPlacement) error

	// MarkDeleted soft-deletes a task. Deleted tasks are excluded from active
	// listings and invariant computations.
	// Returns ErrTaskNotFound if the task does not exist.
	MarkDeleted(ctx context.Context, id uuid.UUID) error

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) TaskStore
}
