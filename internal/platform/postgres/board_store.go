package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/trellis-kanban/trellis-api/internal/domain"
	"github.com/trellis-kanban/trellis-api/internal/platform/logger"
	"github.com/trellis-kanban/trellis-api/internal/store"
)

// PostgresBoardStore implements the store.BoardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresBoardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresBoardStore creates a new PostgreSQL implementation of the BoardStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresBoardStore(db store.DBTX, logger *slog.Logger) *PostgresBoardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresBoardStore{
		db:     db,
		logger: logger.With(slog.String("component", "board_store")),
	}
}

// Ensure PostgresBoardStore implements store.BoardStore interface
var _ store.BoardStore = (*PostgresBoardStore)(nil)

// Create implements store.BoardStore.Create
func (s *PostgresBoardStore) Create(ctx context.Context, board *domain.Board) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := board.Validate(); err != nil {
		log.Warn("board validation failed during create",
			slog.String("error", err.Error()),
			slog.String("board_id", board.ID.String()))
		return err
	}

	query := `
		INSERT INTO boards (id, name, archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		board.ID,
		board.Name,
		board.Archived,
		board.CreatedAt,
		board.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create board",
			slog.String("error", err.Error()),
			slog.String("board_id", board.ID.String()))
		return MapError(err)
	}

	log.Info("board created",
		slog.String("board_id", board.ID.String()),
		slog.String("name", board.Name))
	return nil
}

// GetByID implements store.BoardStore.GetByID
// Returns store.ErrBoardNotFound if the board does not exist.
func (s *PostgresBoardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, name, archived, created_at, updated_at
		FROM boards
		WHERE id = $1
	`

	var board domain.Board
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&board.ID,
		&board.Name,
		&board.Archived,
		&board.CreatedAt,
		&board.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("board not found", slog.String("board_id", id.String()))
			return nil, store.ErrBoardNotFound
		}
		log.Error("failed to get board by ID",
			slog.String("error", err.Error()),
			slog.String("board_id", id.String()))
		return nil, MapError(err)
	}

	return &board, nil
}

// Update implements store.BoardStore.Update
// Returns store.ErrBoardNotFound if the board does not exist.
func (s *PostgresBoardStore) Update(ctx context.Context, board *domain.Board) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := board.Validate(); err != nil {
		log.Warn("board validation failed during update",
			slog.String("error", err.Error()),
			slog.String("board_id", board.ID.String()))
		return err
	}

	query := `
		UPDATE boards
		SET name = $1, archived = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		board.Name,
		board.Archived,
		board.UpdatedAt,
		board.ID,
	)
	if err != nil {
		log.Error("failed to update board",
			slog.String("error", err.Error()),
			slog.String("board_id", board.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "board"); err != nil {
		return store.ErrBoardNotFound
	}
	return nil
}

// WithTx implements store.BoardStore.WithTx
// It returns a new BoardStore bound to the given transaction.
func (s *PostgresBoardStore) WithTx(tx *sql.Tx) store.BoardStore {
	return &PostgresBoardStore{
		db:     tx,
		logger: s.logger,
	}
}
