package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/trellis-kanban/trellis-api/internal/domain"
)

// CommentStore defines the interface for comment persistence.
type CommentStore interface {
	// Create saves a new comment.
	Create(ctx context.Context, comment *domain.Comment) error

	// GetByID retrieves a comment by its ID.
	// Returns ErrCommentNotFound if the comment does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error)

	// ListByTask returns a task's comments ordered by creation time.
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.Comment, error)

	// Update saves changes to an existing comment's body.
	// Returns ErrCommentNotFound if the comment does not exist.
	Update(ctx context.Context, comment *domain.Comment) error

	// MarkDeleted soft-deletes a comment.
	// Returns ErrCommentNotFound if the comment does not exist.
	MarkDeleted(ctx context.Context, id uuid.UUID) error

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) CommentStore
}
