package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/trellis-kanban/trellis-api/internal/domain"
	"github.com/trellis-kanban/trellis-api/internal/platform/logger"
	"github.com/trellis-kanban/trellis-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

const taskColumns = `id, board_id, column_id, title, position, priority,
	status_id, type_id, assignee_id, due_date, archived, version,
	created_at, updated_at`

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (id, board_id, column_id, title, position, priority,
		                   status_id, type_id, assignee_id, due_date, archived,
		                   version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.BoardID,
		task.ColumnID,
		task.Title,
		task.Position,
		string(task.Priority),
		task.StatusID,
		task.TypeID,
		task.AssigneeID,
		task.DueDate,
		task.Archived,
		task.Version,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()),
			slog.String("column_id", task.ColumnID.String()))
		return MapError(err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("column_id", task.ColumnID.String()),
		slog.Int("position", task.Position))
	return nil
}

// GetByID implements store.TaskStore.GetByID
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1 AND deleted_at IS NULL
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	return task, nil
}

// ListActiveByColumn implements store.TaskStore.ListActiveByColumn
// It returns the column's active tasks ordered by position.
func (s *PostgresTaskStore) ListActiveByColumn(ctx context.Context, columnID uuid.UUID) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE column_id = $1 AND NOT archived AND deleted_at IS NULL
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, columnID)
	if err != nil {
		log.Error("failed to list tasks",
			slog.String("error", err.Error()),
			slog.String("column_id", columnID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row",
				slog.String("error", err.Error()),
				slog.String("column_id", columnID.String()))
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows",
			slog.String("error", err.Error()),
			slog.String("column_id", columnID.String()))
		return nil, MapError(err)
	}

	return tasks, nil
}

// Update implements store.TaskStore.Update
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		UPDATE tasks
		SET title = $1, position = $2, priority = $3, status_id = $4,
		    type_id = $5, assignee_id = $6, due_date = $7, archived = $8,
		    updated_at = $9
		WHERE id = $10 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		task.Title,
		task.Position,
		string(task.Priority),
		task.StatusID,
		task.TypeID,
		task.AssigneeID,
		task.DueDate,
		task.Archived,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		return store.ErrTaskNotFound
	}
	return nil
}

// ApplyPlacements implements store.TaskStore.ApplyPlacements
// Each update is guarded by the version observed at load time; a stale row
// fails the whole batch with store.ErrConflict so the caller's transaction
// rolls every placement back.
func (s *PostgresTaskStore) ApplyPlacements(ctx context.Context, placements []store.TaskPlacement) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET column_id = $1, position = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5 AND deleted_at IS NULL
	`

	now := time.Now().UTC()
	for _, p := range placements {
		result, err := s.db.ExecContext(ctx, query,
			p.ColumnID, p.Position, now, p.TaskID, p.ExpectedVersion)
		if err != nil {
			log.Error("failed to apply task placement",
				slog.String("error", err.Error()),
				slog.String("task_id", p.TaskID.String()),
				slog.Int("position", p.Position))
			return MapError(err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			log.Warn("task placement lost a concurrent write",
				slog.String("task_id", p.TaskID.String()),
				slog.Int64("expected_version", p.ExpectedVersion))
			return fmt.Errorf("%w: task %s changed since it was read",
				store.ErrConflict, p.TaskID)
		}
	}

	return nil
}

// MarkDeleted implements store.TaskStore.MarkDeleted
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		return store.ErrTaskNotFound
	}

	log.Info("task deleted", slog.String("task_id", id.String()))
	return nil
}

// WithTx implements store.TaskStore.WithTx
// It returns a new TaskStore bound to the given transaction.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var priority string
	var statusID, typeID, assigneeID uuid.NullUUID
	var dueDate sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.BoardID,
		&task.ColumnID,
		&task.Title,
		&task.Position,
		&priority,
		&statusID,
		&typeID,
		&assigneeID,
		&dueDate,
		&task.Archived,
		&task.Version,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Priority = domain.Priority(priority)
	if statusID.Valid {
		task.StatusID = &statusID.UUID
	}
	if typeID.Valid {
		task.TypeID = &typeID.UUID
	}
	if assigneeID.Valid {
		task.AssigneeID = &assigneeID.UUID
	}
	if dueDate.Valid {
		due := dueDate.Time
		task.DueDate = &due
	}
	return &task, nil
}
