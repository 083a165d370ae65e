package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/trellis-kanban/trellis-api/internal/domain"
	"github.com/trellis-kanban/trellis-api/internal/realtime"
	"github.com/trellis-kanban/trellis-api/internal/store"
)

// MentionJob scans a comment for @handles, resolves them to active board
// members, and emits a user_mentioned event per match. Unknown handles and
// non-members are skipped silently; the author mentioning themselves is
// ignored.
type MentionJob struct {
	id          uuid.UUID
	comment     *domain.Comment
	users       store.UserStore
	memberships store.MembershipStore
	broadcaster realtime.Broadcaster
	logger      *slog.Logger
}

// NewMentionJob creates a mention scan job for the given comment.
func NewMentionJob(
	comment *domain.Comment,
	users store.UserStore,
	memberships store.MembershipStore,
	broadcaster realtime.Broadcaster,
	logger *slog.Logger,
) *MentionJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &MentionJob{
		id:          uuid.New(),
		comment:     comment,
		users:       users,
		memberships: memberships,
		broadcaster: broadcaster,
		logger:      logger.With(slog.String("component", "mention_job")),
	}
}

var _ Job = (*MentionJob)(nil)

// ID implements Job.
func (j *MentionJob) ID() uuid.UUID { return j.id }

// Kind implements Job.
func (j *MentionJob) Kind() string { return "mention_scan" }

// Execute implements Job.
func (j *MentionJob) Execute(ctx context.Context) error {
	handles := j.comment.Mentions()
	if len(handles) == 0 {
		return nil
	}

	for _, handle := range handles {
		user, err := j.users.GetByHandle(ctx, handle)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return err
		}
		if user.ID == j.comment.AuthorID {
			continue
		}

		if _, err := j.memberships.Get(ctx, j.comment.BoardID, user.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return err
		}

		j.broadcaster.Publish(ctx,
			realtime.NewEvent(realtime.EventUserMentioned, j.comment.BoardID).
				WithTask(j.comment.TaskID).
				WithComment(j.comment.ID).
				WithUser(user.ID))

		j.logger.Debug("mention delivered",
			slog.String("handle", handle),
			slog.String("comment_id", j.comment.ID.String()))
	}

	return nil
}
