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

// PostgresMembershipStore implements the store.MembershipStore interface
// using a PostgreSQL database as the storage backend.
type PostgresMembershipStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMembershipStore creates a new PostgreSQL implementation of the MembershipStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresMembershipStore(db store.DBTX, logger *slog.Logger) *PostgresMembershipStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMembershipStore{
		db:     db,
		logger: logger.With(slog.String("component", "membership_store")),
	}
}

// Ensure PostgresMembershipStore implements store.MembershipStore interface
var _ store.MembershipStore = (*PostgresMembershipStore)(nil)

// Create implements store.MembershipStore.Create
// Returns store.ErrMembershipExists if the user already belongs to the board.
func (s *PostgresMembershipStore) Create(ctx context.Context, membership *domain.Membership) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := membership.Validate(); err != nil {
		log.Warn("membership validation failed during create",
			slog.String("error", err.Error()),
			slog.String("board_id", membership.BoardID.String()),
			slog.String("user_id", membership.UserID.String()))
		return err
	}

	query := `
		INSERT INTO memberships (board_id, user_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		membership.BoardID,
		membership.UserID,
		membership.Role.String(),
		membership.CreatedAt,
		membership.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: user %s on board %s",
				store.ErrMembershipExists, membership.UserID, membership.BoardID)
		}
		log.Error("failed to create membership",
			slog.String("error", err.Error()),
			slog.String("board_id", membership.BoardID.String()),
			slog.String("user_id", membership.UserID.String()))
		return MapError(err)
	}

	log.Info("membership created",
		slog.String("board_id", membership.BoardID.String()),
		slog.String("user_id", membership.UserID.String()),
		slog.String("role", membership.Role.String()))
	return nil
}

// Get implements store.MembershipStore.Get
// Returns store.ErrMembershipNotFound if the user does not belong to the board.
func (s *PostgresMembershipStore) Get(ctx context.Context, boardID, userID uuid.UUID) (*domain.Membership, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT board_id, user_id, role, created_at, updated_at
		FROM memberships
		WHERE board_id = $1 AND user_id = $2
	`

	membership, err := scanMembership(s.db.QueryRowContext(ctx, query, boardID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrMembershipNotFound
		}
		log.Error("failed to get membership",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}

	return membership, nil
}

// ListByBoard implements store.MembershipStore.ListByBoard
func (s *PostgresMembershipStore) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Membership, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT board_id, user_id, role, created_at, updated_at
		FROM memberships
		WHERE board_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, boardID)
	if err != nil {
		log.Error("failed to list memberships",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var memberships []*domain.Membership
	for rows.Next() {
		membership, err := scanMembership(rows)
		if err != nil {
			log.Error("failed to scan membership row",
				slog.String("error", err.Error()),
				slog.String("board_id", boardID.String()))
			return nil, MapError(err)
		}
		memberships = append(memberships, membership)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating membership rows",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()))
		return nil, MapError(err)
	}

	return memberships, nil
}

// UpdateRole implements store.MembershipStore.UpdateRole
// Returns store.ErrMembershipNotFound if the user does not belong to the board.
func (s *PostgresMembershipStore) UpdateRole(ctx context.Context, boardID, userID uuid.UUID, role domain.Role) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !role.Valid() {
		return domain.ErrRoleInvalid
	}

	query := `
		UPDATE memberships
		SET role = $1, updated_at = $2
		WHERE board_id = $3 AND user_id = $4
	`
	result, err := s.db.ExecContext(ctx, query, role.String(), time.Now().UTC(), boardID, userID)
	if err != nil {
		log.Error("failed to update membership role",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()),
			slog.String("user_id", userID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "membership"); err != nil {
		return store.ErrMembershipNotFound
	}

	log.Info("membership role updated",
		slog.String("board_id", boardID.String()),
		slog.String("user_id", userID.String()),
		slog.String("role", role.String()))
	return nil
}

// Delete implements store.MembershipStore.Delete
// Returns store.ErrMembershipNotFound if the user does not belong to the board.
func (s *PostgresMembershipStore) Delete(ctx context.Context, boardID, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		DELETE FROM memberships
		WHERE board_id = $1 AND user_id = $2
	`
	result, err := s.db.ExecContext(ctx, query, boardID, userID)
	if err != nil {
		log.Error("failed to delete membership",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()),
			slog.String("user_id", userID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "membership"); err != nil {
		return store.ErrMembershipNotFound
	}

	log.Info("membership deleted",
		slog.String("board_id", boardID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// WithTx implements store.MembershipStore.WithTx
// It returns a new MembershipStore bound to the given transaction.
func (s *PostgresMembershipStore) WithTx(tx *sql.Tx) store.MembershipStore {
	return &PostgresMembershipStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanMembership(row rowScanner) (*domain.Membership, error) {
	var membership domain.Membership
	var role string

	err := row.Scan(
		&membership.BoardID,
		&membership.UserID,
		&role,
		&membership.CreatedAt,
		&membership.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}
	membership.Role = parsed
	return &membership, nil
}
