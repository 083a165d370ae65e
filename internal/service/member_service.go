package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/trellis-kanban/trellis-api/internal/authz"
	"github.com/trellis-kanban/trellis-api/internal/domain"
	"github.com/trellis-kanban/trellis-api/internal/realtime"
	"github.com/trellis-kanban/trellis-api/internal/store"
)

// MemberService handles board membership commands: add, remove, and role
// updates, guarded by the last-admin invariant.
type MemberService struct {
	db          *sql.DB
	memberships store.MembershipStore
	users       store.UserStore
	broadcaster realtime.Broadcaster
	logger      *slog.Logger
}

// NewMemberService creates a MemberService.
func NewMemberService(
	db *sql.DB,
	memberships store.MembershipStore,
	users store.UserStore,
	broadcaster realtime.Broadcaster,
	log *slog.Logger,
) *MemberService {
	if log == nil {
		log = slog.Default()
	}
	return &MemberService{
		db:          db,
		memberships: memberships,
		users:       users,
		broadcaster: broadcaster,
		logger:      log.With(slog.String("component", "member_service")),
	}
}

// AddMember grants a user a role on the board. Requires Admin.
func (s *MemberService) AddMember(ctx context.Context, callerID, boardID, userID uuid.UUID, role domain.Role) error {
	if _, err := requireRole(ctx, s.memberships, boardID, callerID, domain.RoleAdmin); err != nil {
		return err
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}

	membership, err := domain.NewMembership(boardID, userID, role)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.memberships.WithTx(tx).Create(ctx, membership)
	})
	if err != nil {
		if errors.Is(err, store.ErrMembershipExists) {
			return fmt.Errorf("%w: user is already a member", ErrInvalidOperation)
		}
		return mapCommitErr(err)
	}

	publish(ctx, s.logger, s.broadcaster,
		realtime.NewEvent(realtime.EventMemberAdded, boardID).WithUser(userID))
	return nil
}

// RemoveMember removes a user's membership. A member may remove themselves;
// removing others requires Admin. Removing the board's only admin is always
// rejected.
func (s *MemberService) RemoveMember(ctx context.Context, callerID, boardID, userID uuid.UUID) error {
	if callerID == uuid.Nil {
		return ErrUnauthorized
	}

	caller, err := s.memberships.Get(ctx, boardID, callerID)
	if err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			return fmt.Errorf("%w: caller is not a member of the board", ErrForbidden)
		}
		return err
	}

	target, err := s.memberships.Get(ctx, boardID, userID)
	if err != nil {
		return err
	}

	all, err := s.memberships.ListByBoard(ctx, boardID)
	if err != nil {
		return err
	}

	if err := authz.CheckRemoveMember(caller, target, all); err != nil {
		return mapGuardErr(err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.memberships.WithTx(tx).Delete(ctx, boardID, userID)
	})
	if err != nil {
		return mapCommitErr(err)
	}

	publish(ctx, s.logger, s.broadcaster,
		realtime.NewEvent(realtime.EventMemberRemoved, boardID).WithUser(userID))
	return nil
}

// UpdateMemberRole changes a member's role. Requires Admin; demoting the
// board's only admin is always rejected.
func (s *MemberService) UpdateMemberRole(ctx context.Context, callerID, boardID, userID uuid.UUID, role domain.Role) error {
	if callerID == uuid.Nil {
		return ErrUnauthorized
	}
	if !role.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidOperation, domain.ErrRoleInvalid)
	}

	caller, err := s.memberships.Get(ctx, boardID, callerID)
	if err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			return fmt.Errorf("%w: caller is not a member of the board", ErrForbidden)
		}
		return err
	}

	target, err := s.memberships.Get(ctx, boardID, userID)
	if err != nil {
		return err
	}

	all, err := s.memberships.ListByBoard(ctx, boardID)
	if err != nil {
		return err
	}

	if err := authz.CheckUpdateRole(caller, target, role, all); err != nil {
		return mapGuardErr(err)
	}

	if target.Role == role {
		return nil
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.memberships.WithTx(tx).UpdateRole(ctx, boardID, userID, role)
	})
	if err != nil {
		return mapCommitErr(err)
	}

	publish(ctx, s.logger, s.broadcaster,
		realtime.NewEvent(realtime.EventMemberRoleUpdated, boardID).WithUser(userID))
	return nil
}

// ListMembers returns the board's memberships. Requires Viewer.
func (s *MemberService) ListMembers(ctx context.Context, callerID, boardID uuid.UUID) ([]*domain.Membership, error) {
	if _, err := requireRole(ctx, s.memberships, boardID, callerID, domain.RoleViewer); err != nil {
		return nil, err
	}
	return s.memberships.ListByBoard(ctx, boardID)
}

// CheckViewer verifies the caller may watch the board's event stream.
func (s *MemberService) CheckViewer(ctx context.Context, callerID, boardID uuid.UUID) error {
	_, err := requireRole(ctx, s.memberships, boardID, callerID, domain.RoleViewer)
	return err
}
