package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/trellis-kanban/trellis-api/internal/domain"
	"github.com/trellis-kanban/trellis-api/internal/realtime"
	"github.com/trellis-kanban/trellis-api/internal/store"
	"github.com/trellis-kanban/trellis-api/internal/worker"
)

// CommentService handles comment commands. Mention fanout is handed to the
// background worker queue; a full queue only costs the notification, never
// the comment.
type CommentService struct {
	db          *sql.DB
	comments    store.CommentStore
	tasks       store.TaskStore
	memberships store.MembershipStore
	users       store.UserStore
	broadcaster realtime.Broadcaster
	queue       *worker.Queue
	logger      *slog.Logger
}

// NewCommentService creates a CommentService.
func NewCommentService(
	db *sql.DB,
	comments store.CommentStore,
	tasks store.TaskStore,
	memberships store.MembershipStore,
	users store.UserStore,
	broadcaster realtime.Broadcaster,
	queue *worker.Queue,
	log *slog.Logger,
) *CommentService {
	if log == nil {
		log = slog.Default()
	}
	return &CommentService{
		db:          db,
		comments:    comments,
		tasks:       tasks,
		memberships: memberships,
		users:       users,
		broadcaster: broadcaster,
		queue:       queue,
		logger:      log.With(slog.String("component", "comment_service")),
	}
}

// CreateComment attaches a comment to a task and schedules mention fanout.
// Requires Member.
func (s *CommentService) CreateComment(ctx context.Context, callerID, taskID uuid.UUID, body string) (*domain.Comment, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if _, err := requireRole(ctx, s.memberships, task.BoardID, callerID, domain.RoleMember); err != nil {
		return nil, err
	}

	comment, err := domain.NewComment(taskID, task.BoardID, callerID, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.comments.WithTx(tx).Create(ctx, comment)
	})
	if err != nil {
		return nil, mapCommitErr(err)
	}

	publish(ctx, s.logger, s.broadcaster,
		realtime.NewEvent(realtime.EventCommentCreated, comment.BoardID).
			WithTask(comment.TaskID).
			WithComment(comment.ID))

	s.enqueueMentionScan(comment)
	return comment, nil
}

// UpdateComment replaces a comment's body. Only the author may edit.
func (s *CommentService) UpdateComment(ctx context.Context, callerID, commentID uuid.UUID, body string) (*domain.Comment, error) {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}

	if _, err := requireRole(ctx, s.memberships, comment.BoardID, callerID, domain.RoleMember); err != nil {
		return nil, err
	}
	if comment.AuthorID != callerID {
		return nil, fmt.Errorf("%w: only the author may edit a comment", ErrForbidden)
	}

	comment.Body = body
	comment.UpdatedAt = time.Now().UTC()
	if err := comment.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.comments.WithTx(tx).Update(ctx, comment)
	})
	if err != nil {
		return nil, mapCommitErr(err)
	}

	publish(ctx, s.logger, s.broadcaster,
		realtime.NewEvent(realtime.EventCommentUpdated, comment.BoardID).
			WithTask(comment.TaskID).
			WithComment(comment.ID))

	s.enqueueMentionScan(comment)
	return comment, nil
}

// DeleteComment soft-deletes a comment. The author may delete their own;
// admins may delete any.
func (s *CommentService) DeleteComment(ctx context.Context, callerID, commentID uuid.UUID) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}

	membership, err := requireRole(ctx, s.memberships, comment.BoardID, callerID, domain.RoleMember)
	if err != nil {
		return err
	}
	if comment.AuthorID != callerID && membership.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: only the author or an admin may delete a comment", ErrForbidden)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.comments.WithTx(tx).MarkDeleted(ctx, commentID)
	})
	if err != nil {
		return mapCommitErr(err)
	}

	publish(ctx, s.logger, s.broadcaster,
		realtime.NewEvent(realtime.EventCommentDeleted, comment.BoardID).
			WithTask(comment.TaskID).
			WithComment(comment.ID))
	return nil
}

// ListComments returns a task's comments in creation order. Requires Viewer.
func (s *CommentService) ListComments(ctx context.Context, callerID, taskID uuid.UUID) ([]*domain.Comment, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := requireRole(ctx, s.memberships, task.BoardID, callerID, domain.RoleViewer); err != nil {
		return nil, err
	}
	return s.comments.ListByTask(ctx, taskID)
}

func (s *CommentService) enqueueMentionScan(comment *domain.Comment) {
	if s.queue == nil || len(comment.Mentions()) == 0 {
		return
	}

	job := worker.NewMentionJob(comment, s.users, s.memberships, s.broadcaster, s.logger)
	if err := s.queue.Enqueue(job); err != nil {
		if errors.Is(err, worker.ErrQueueFull) || errors.Is(err, worker.ErrQueueClosed) {
			s.logger.Warn("dropping mention scan",
				slog.String("comment_id", comment.ID.String()),
				slog.String("error", err.Error()))
			return
		}
		s.logger.Error("failed to enqueue mention scan",
			slog.String("comment_id", comment.ID.String()),
			slog.String("error", err.Error()))
	}
}
