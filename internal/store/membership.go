package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/trellis-kanban/trellis-api/internal/domain"
)

// MembershipStore defines the interface for board membership persistence.
type MembershipStore interface {
	// Create saves a new membership.
	// Returns ErrMembershipExists if the user already belongs to the board.
	Create(ctx context.Context, membership *domain.Membership) error

	// Get retrieves the membership of a user on a board.
	// Returns ErrMembershipNotFound if the user does not belong to the board.
	Get(ctx context.Context, boardID, userID uuid.UUID) (*domain.Membership, error)

	// ListByBoard returns all memberships of a board.
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.Membership, error)

	// UpdateRole changes a membership's role.
	// Returns ErrMembershipNotFound if the user does not belong to the board.
	UpdateRole(ctx context.Context, boardID, userID uuid.UUID, role domain.Role) error

	// Delete removes a membership.
	// Returns ErrMembershipNotFound if the user does not belong to the board.
	Delete(ctx context.Context, boardID, userID uuid.UUID) error

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) MembershipStore
}

// User is the minimal user projection the board tracker needs: identity and
// the handle used by @mentions. Account management lives elsewhere.
type User struct {
	ID          uuid.UUID `json:"id"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name"`
}

// UserStore resolves users for assignment and mention fanout.
type UserStore interface {
	// GetByID retrieves a user by ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByHandle retrieves a user by their unique handle.
	// Returns ErrUserNotFound if no user carries the handle.
	GetByHandle(ctx context.Context, handle string) (*User, error)
}
