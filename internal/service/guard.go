package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/trellis-kanban/trellis-api/internal/authz"
	"github.com/trellis-kanban/trellis-api/internal/domain"
	"github.com/trellis-kanban/trellis-api/internal/realtime"
	"github.com/trellis-kanban/trellis-api/internal/store"
)

// requireRole loads the caller's membership on the board and checks it grants
// at least the required role. A missing membership is reported as Forbidden,
// not NotFound, so non-members cannot probe board existence.
func requireRole(
	ctx context.Context,
	memberships store.MembershipStore,
	boardID, callerID uuid.UUID,
	required domain.Role,
) (*domain.Membership, error) {
	if callerID == uuid.Nil {
		return nil, ErrUnauthorized
	}

	membership, err := memberships.Get(ctx, boardID, callerID)
	if err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			return nil, fmt.Errorf("%w: caller is not a member of the board", ErrForbidden)
		}
		return nil, err
	}

	if err := authz.Require(membership, required); err != nil {
		return nil, mapGuardErr(err)
	}

	return membership, nil
}

// publish broadcasts an event after a successful commit. The context is
// detached from request cancellation: an already-committed state change must
// still be observable to other clients even if the caller has gone away.
// Broadcast failure never reaches the command result: a panicking
// broadcaster is logged and swallowed.
func publish(ctx context.Context, log *slog.Logger, broadcaster realtime.Broadcaster, event realtime.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("broadcast failed after commit",
				slog.String("event_type", string(event.Type)),
				slog.String("board_id", event.BoardID.String()),
				slog.Any("panic", r))
		}
	}()
	broadcaster.Publish(context.WithoutCancel(ctx), event)
}
