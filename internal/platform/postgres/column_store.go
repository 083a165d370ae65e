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

// PostgresColumnStore implements the store.ColumnStore interface
// using a PostgreSQL database as the storage backend.
type PostgresColumnStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresColumnStore creates a new PostgreSQL implementation of the ColumnStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresColumnStore(db store.DBTX, logger *slog.Logger) *PostgresColumnStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresColumnStore{
		db:     db,
		logger: logger.With(slog.String("component", "column_store")),
	}
}

// Ensure PostgresColumnStore implements store.ColumnStore interface
var _ store.ColumnStore = (*PostgresColumnStore)(nil)

// Create implements store.ColumnStore.Create
func (s *PostgresColumnStore) Create(ctx context.Context, column *domain.Column) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := column.Validate(); err != nil {
		log.Warn("column validation failed during create",
			slog.String("error", err.Error()),
			slog.String("column_id", column.ID.String()))
		return err
	}

	query := `
		INSERT INTO columns (id, board_id, name, position, status_id, wip_limit,
		                     archived, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		column.ID,
		column.BoardID,
		column.Name,
		column.Position,
		column.StatusID,
		column.WIPLimit,
		column.Archived,
		column.Version,
		column.CreatedAt,
		column.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create column",
			slog.String("error", err.Error()),
			slog.String("column_id", column.ID.String()),
			slog.String("board_id", column.BoardID.String()))
		return MapError(err)
	}

	log.Info("column created",
		slog.String("column_id", column.ID.String()),
		slog.String("board_id", column.BoardID.String()),
		slog.Int("position", column.Position))
	return nil
}

// GetByID implements store.ColumnStore.GetByID
// Returns store.ErrColumnNotFound if the column does not exist.
func (s *PostgresColumnStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Column, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, board_id, name, position, status_id, wip_limit,
		       archived, version, created_at, updated_at
		FROM columns
		WHERE id = $1 AND deleted_at IS NULL
	`

	column, err := scanColumn(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("column not found", slog.String("column_id", id.String()))
			return nil, store.ErrColumnNotFound
		}
		log.Error("failed to get column by ID",
			slog.String("error", err.Error()),
			slog.String("column_id", id.String()))
		return nil, MapError(err)
	}

	return column, nil
}

// ListActiveByBoard implements store.ColumnStore.ListActiveByBoard
// It returns the board's active columns ordered by position.
func (s *PostgresColumnStore) ListActiveByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Column, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, board_id, name, position, status_id, wip_limit,
		       archived, version, created_at, updated_at
		FROM columns
		WHERE board_id = $1 AND NOT archived AND deleted_at IS NULL
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, boardID)
	if err != nil {
		log.Error("failed to list columns",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var columns []*domain.Column
	for rows.Next() {
		column, err := scanColumn(rows)
		if err != nil {
			log.Error("failed to scan column row",
				slog.String("error", err.Error()),
				slog.String("board_id", boardID.String()))
			return nil, MapError(err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating column rows",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()))
		return nil, MapError(err)
	}

	return columns, nil
}

// Update implements store.ColumnStore.Update
// Returns store.ErrColumnNotFound if the column does not exist.
func (s *PostgresColumnStore) Update(ctx context.Context, column *domain.Column) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := column.Validate(); err != nil {
		log.Warn("column validation failed during update",
			slog.String("error", err.Error()),
			slog.String("column_id", column.ID.String()))
		return err
	}

	query := `
		UPDATE columns
		SET name = $1, status_id = $2, wip_limit = $3, archived = $4, updated_at = $5
		WHERE id = $6 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		column.Name,
		column.StatusID,
		column.WIPLimit,
		column.Archived,
		column.UpdatedAt,
		column.ID,
	)
	if err != nil {
		log.Error("failed to update column",
			slog.String("error", err.Error()),
			slog.String("column_id", column.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "column"); err != nil {
		return store.ErrColumnNotFound
	}
	return nil
}

// ApplyPlacements implements store.ColumnStore.ApplyPlacements
// Each update is guarded by the version observed at load time; a stale row
// fails the whole batch with store.ErrConflict so the caller's transaction
// rolls every placement back.
func (s *PostgresColumnStore) ApplyPlacements(ctx context.Context, placements []store.ColumnPlacement) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE columns
		SET position = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4 AND deleted_at IS NULL
	`

	now := time.Now().UTC()
	for _, p := range placements {
		result, err := s.db.ExecContext(ctx, query, p.Position, now, p.ColumnID, p.ExpectedVersion)
		if err != nil {
			log.Error("failed to apply column placement",
				slog.String("error", err.Error()),
				slog.String("column_id", p.ColumnID.String()),
				slog.Int("position", p.Position))
			return MapError(err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			log.Warn("column placement lost a concurrent write",
				slog.String("column_id", p.ColumnID.String()),
				slog.Int64("expected_version", p.ExpectedVersion))
			return fmt.Errorf("%w: column %s changed since it was read",
				store.ErrConflict, p.ColumnID)
		}
	}

	return nil
}

// BumpVersion implements store.ColumnStore.BumpVersion
func (s *PostgresColumnStore) BumpVersion(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE columns
		SET version = version + 1, updated_at = $1
		WHERE id = $2 AND version = $3 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id, expectedVersion)
	if err != nil {
		log.Error("failed to bump column version",
			slog.String("error", err.Error()),
			slog.String("column_id", id.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists bool
		checkQuery := `SELECT EXISTS (SELECT 1 FROM columns WHERE id = $1 AND deleted_at IS NULL)`
		if err := s.db.QueryRowContext(ctx, checkQuery, id).Scan(&exists); err != nil {
			return MapError(err)
		}
		if !exists {
			return store.ErrColumnNotFound
		}
		log.Warn("column version check lost a concurrent write",
			slog.String("column_id", id.String()),
			slog.Int64("expected_version", expectedVersion))
		return fmt.Errorf("%w: column %s changed since it was read",
			store.ErrConflict, id)
	}

	return nil
}

// MarkDeleted implements store.ColumnStore.MarkDeleted
// Returns store.ErrColumnNotFound if the column does not exist.
func (s *PostgresColumnStore) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE columns
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to delete column",
			slog.String("error", err.Error()),
			slog.String("column_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "column"); err != nil {
		return store.ErrColumnNotFound
	}

	log.Info("column deleted", slog.String("column_id", id.String()))
	return nil
}

// WithTx implements store.ColumnStore.WithTx
// It returns a new ColumnStore bound to the given transaction.
func (s *PostgresColumnStore) WithTx(tx *sql.Tx) store.ColumnStore {
	return &PostgresColumnStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanColumn(row rowScanner) (*domain.Column, error) {
	var column domain.Column
	var statusID uuid.NullUUID
	var wipLimit sql.NullInt64

	err := row.Scan(
		&column.ID,
		&column.BoardID,
		&column.Name,
		&column.Position,
		&statusID,
		&wipLimit,
		&column.Archived,
		&column.Version,
		&column.CreatedAt,
		&column.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if statusID.Valid {
		column.StatusID = &statusID.UUID
	}
	if wipLimit.Valid {
		limit := int(wipLimit.Int64)
		column.WIPLimit = &limit
	}
	return &column, nil
}
