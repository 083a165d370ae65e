package service

import (
	"errors"
	"fmt"

	"github.com/trellis-kanban/trellis-api/internal/authz"
	"github.com/trellis-kanban/trellis-api/internal/position"
	"github.com/trellis-kanban/trellis-api/internal/store"
)

// Outcome sentinels of the mutation pipeline. Together with the store
// sentinels (ErrNotFound family, ErrConflict) they form the full error
// taxonomy surfaced to callers. Broadcast failures are not part of it: they
// are logged and swallowed after a successful commit.
var (
	// ErrUnauthorized is returned when a command carries no caller identity.
	ErrUnauthorized = errors.New("caller identity missing")

	// ErrForbidden is returned when the caller's role does not permit the
	// command.
	ErrForbidden = errors.New("operation not permitted for caller's role")

	// ErrInvalidOperation is returned for structurally invalid commands:
	// duplicate or gapped position sets, cross-board columns, an assignee
	// who is not a member, demoting the last admin, WIP limit overflow.
	ErrInvalidOperation = errors.New("operation is not valid")

	// ErrBoardArchived is returned when mutating an archived board.
	ErrBoardArchived = fmt.Errorf("%w: board is archived", ErrInvalidOperation)

	// ErrWIPLimitExceeded is returned when a move or create would push a
	// column past its WIP limit.
	ErrWIPLimitExceeded = fmt.Errorf("%w: column WIP limit exceeded", ErrInvalidOperation)
)

// mapGuardErr converts authz errors into the service taxonomy: missing role
// is Forbidden, rule violations (last admin, non-member assignee) are
// InvalidOperation.
func mapGuardErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, authz.ErrForbidden):
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	case errors.Is(err, authz.ErrLastAdmin),
		errors.Is(err, authz.ErrAssigneeNotMember):
		return fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	default:
		return err
	}
}

// mapPlanErr converts position engine errors into the service taxonomy.
func mapPlanErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, position.ErrIndexOutOfRange),
		errors.Is(err, position.ErrColumnNotOnBoard),
		errors.Is(err, position.ErrTaskNotInColumn),
		errors.Is(err, position.ErrPositionSetInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	default:
		return err
	}
}

// mapCommitErr converts commit-time store errors. A unique violation on a
// placement slot means another writer landed first, which is a conflict from
// the caller's point of view.
func mapCommitErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrDuplicate):
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	default:
		return err
	}
}
