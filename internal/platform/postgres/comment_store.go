package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/trellis-kanban/trellis-api/internal/domain"
	"github.com/trellis-kanban/trellis-api/internal/platform/logger"
	"github.com/trellis-kanban/trellis-api/internal/store"
)

// PostgresCommentStore implements the store.CommentStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCommentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCommentStore creates a new PostgreSQL implementation of the CommentStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCommentStore(db store.DBTX, logger *slog.Logger) *PostgresCommentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCommentStore{
		db:     db,
		logger: logger.With(slog.String("component", "comment_store")),
	}
}

// Ensure PostgresCommentStore implements store.CommentStore interface
var _ store.CommentStore = (*PostgresCommentStore)(nil)

// Create implements store.CommentStore.Create
func (s *PostgresCommentStore) Create(ctx context.Context, comment *domain.Comment) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := comment.Validate(); err != nil {
		log.Warn("comment validation failed during create",
			slog.String("error", err.Error()),
			slog.String("comment_id", comment.ID.String()))
		return err
	}

	query := `
		INSERT INTO comments (id, task_id, board_id, author_id, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		comment.ID,
		comment.TaskID,
		comment.BoardID,
		comment.AuthorID,
		comment.Body,
		comment.CreatedAt,
		comment.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create comment",
			slog.String("error", err.Error()),
			slog.String("comment_id", comment.ID.String()),
			slog.String("task_id", comment.TaskID.String()))
		return MapError(err)
	}

	log.Info("comment created",
		slog.String("comment_id", comment.ID.String()),
		slog.String("task_id", comment.TaskID.String()))
	return nil
}

// GetByID implements store.CommentStore.GetByID
// Returns store.ErrCommentNotFound if the comment does not exist.
func (s *PostgresCommentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, task_id, board_id, author_id, body, created_at, updated_at
		FROM comments
		WHERE id = $1 AND deleted_at IS NULL
	`

	var comment domain.Comment
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&comment.ID,
		&comment.TaskID,
		&comment.BoardID,
		&comment.AuthorID,
		&comment.Body,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("comment not found", slog.String("comment_id", id.String()))
			return nil, store.ErrCommentNotFound
		}
		log.Error("failed to get comment by ID",
			slog.String("error", err.Error()),
			slog.String("comment_id", id.String()))
		return nil, MapError(err)
	}

	return &comment, nil
}

// ListByTask implements store.CommentStore.ListByTask
// It returns the task's comments ordered by creation time.
func (s *PostgresCommentStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.Comment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, task_id, board_id, author_id, body, created_at, updated_at
		FROM comments
		WHERE task_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		log.Error("failed to list comments",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var comments []*domain.Comment
	for rows.Next() {
		var comment domain.Comment
		err := rows.Scan(
			&comment.ID,
			&comment.TaskID,
			&comment.BoardID,
			&comment.AuthorID,
			&comment.Body,
			&comment.CreatedAt,
			&comment.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to scan comment row",
				slog.String("error", err.Error()),
				slog.String("task_id", taskID.String()))
			return nil, MapError(err)
		}
		comments = append(comments, &comment)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating comment rows",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, MapError(err)
	}

	return comments, nil
}

// Update implements store.CommentStore.Update
// Returns store.ErrCommentNotFound if the comment does not exist.
func (s *PostgresCommentStore) Update(ctx context.Context, comment *domain.Comment) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := comment.Validate(); err != nil {
		log.Warn("comment validation failed during update",
			slog.String("error", err.Error()),
			slog.String("comment_id", comment.ID.String()))
		return err
	}

	query := `
		UPDATE comments
		SET body = $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, comment.Body, comment.UpdatedAt, comment.ID)
	if err != nil {
		log.Error("failed to update comment",
			slog.String("error", err.Error()),
			slog.String("comment_id", comment.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "comment"); err != nil {
		return store.ErrCommentNotFound
	}
	return nil
}

// MarkDeleted implements store.CommentStore.MarkDeleted
// Returns store.ErrCommentNotFound if the comment does not exist.
func (s *PostgresCommentStore) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE comments
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to delete comment",
			slog.String("error", err.Error()),
			slog.String("comment_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "comment"); err != nil {
		return store.ErrCommentNotFound
	}

	log.Info("comment deleted", slog.String("comment_id", id.String()))
	return nil
}

// WithTx implements store.CommentStore.WithTx
// It returns a new CommentStore bound to the given transaction.
func (s *PostgresCommentStore) WithTx(tx *sql.Tx) store.CommentStore {
	return &PostgresCommentStore{
		db:     tx,
		logger: s.logger,
	}
}
