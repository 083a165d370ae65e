package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/trellis-kanban/trellis-api/internal/authz"
	"github.com/trellis-kanban/trellis-api/internal/domain"
	"github.com/trellis-kanban/trellis-api/internal/position"
	"github.com/trellis-kanban/trellis-api/internal/realtime"
	"github.com/trellis-kanban/trellis-api/internal/store"
)

// CreateTaskCommand creates a task at the end of a column.
type CreateTaskCommand struct {
	BoardID  uuid.UUID
	ColumnID uuid.UUID
	Title    string
	Priority domain.Priority
	StatusID *uuid.UUID
	TypeID   *uuid.UUID
	DueDate  *time.Time
}

// MoveTaskCommand moves a task to a target column and index.
type MoveTaskCommand struct {
	TaskID         uuid.UUID
	TargetColumnID uuid.UUID
	TargetIndex    int
}

// UpdateTaskCommand updates a task's mutable fields. Nil pointers leave the
// corresponding field unchanged.
type UpdateTaskCommand struct {
	TaskID   uuid.UUID
	Title    *string
	Priority *domain.Priority
	DueDate  *time.Time
	ClearDue bool
}

// TaskService handles task mutation commands.
type TaskService struct {
	db          *sql.DB
	tasks       store.TaskStore
	columns     store.ColumnStore
	boards      store.BoardStore
	memberships store.MembershipStore
	broadcaster realtime.Broadcaster
	logger      *slog.Logger
}

// NewTaskService creates a TaskService.
func NewTaskService(
	db *sql.DB,
	tasks store.TaskStore,
	columns store.ColumnStore,
	boards store.BoardStore,
	memberships store.MembershipStore,
	broadcaster realtime.Broadcaster,
	log *slog.Logger,
) *TaskService {
	if log == nil {
		log = slog.Default()
	}
	return &TaskService{
		db:          db,
		tasks:       tasks,
		columns:     columns,
		boards:      boards,
		memberships: memberships,
		broadcaster: broadcaster,
		logger:      log.With(slog.String("component", "task_service")),
	}
}

// CreateTask appends a new task to the column: its initial index is the
// column's current active task count.
func (s *TaskService) CreateTask(ctx context.Context, callerID uuid.UUID, cmd CreateTaskCommand) (*domain.Task, error) {
	if _, err := requireRole(ctx, s.memberships, cmd.BoardID, callerID, domain.RoleMember); err != nil {
		return nil, err
	}

	if err := s.checkBoardActive(ctx, cmd.BoardID); err != nil {
		return nil, err
	}

	column, err := s.columns.GetByID(ctx, cmd.ColumnID)
	if err != nil {
		return nil, err
	}
	if column.BoardID != cmd.BoardID {
		return nil, fmt.Errorf("%w: column %s does not belong to board %s",
			ErrInvalidOperation, cmd.ColumnID, cmd.BoardID)
	}

	snapshot, err := s.tasks.ListActiveByColumn(ctx, column.ID)
	if err != nil {
		return nil, err
	}
	if !column.AcceptsTasks(len(snapshot), 1) {
		return nil, ErrWIPLimitExceeded
	}

	task, err := domain.NewTask(cmd.BoardID, cmd.ColumnID, cmd.Title, position.NextIndex(snapshot), cmd.Priority)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}
	task.StatusID = cmd.StatusID
	task.TypeID = cmd.TypeID
	task.DueDate = cmd.DueDate

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		// The insert index came from the snapshot; the version bump fails if
		// any writer changed the column's active set since it was read.
		if err := s.columns.WithTx(tx).BumpVersion(ctx, column.ID, column.Version); err != nil {
			return err
		}
		return s.tasks.WithTx(tx).Create(ctx, task)
	})
	if err != nil {
		return nil, mapCommitErr(err)
	}

	publish(ctx, s.logger, s.broadcaster,
		realtime.NewEvent(realtime.EventTaskCreated, task.BoardID).WithTask(task.ID).WithColumn(task.ColumnID))
	return task, nil
}

// MoveTask places a task at a target index in a target column of the same
// board, shifting neighbors to keep both affected columns gap-free. Moving a
// task to its current slot is a no-op and emits nothing.
func (s *TaskService) MoveTask(ctx context.Context, callerID uuid.UUID, cmd MoveTaskCommand) error {
	task, err := s.tasks.GetByID(ctx, cmd.TaskID)
	if err != nil {
		return err
	}

	if _, err := requireRole(ctx, s.memberships, task.BoardID, callerID, domain.RoleMember); err != nil {
		return err
	}
	if err := s.checkBoardActive(ctx, task.BoardID); err != nil {
		return err
	}
	if task.Archived {
		return fmt.Errorf("%w: task is archived", ErrInvalidOperation)
	}

	targetColumn, err := s.columns.GetByID(ctx, cmd.TargetColumnID)
	if err != nil {
		return err
	}
	sourceColumn := targetColumn
	if targetColumn.ID != task.ColumnID {
		sourceColumn, err = s.columns.GetByID(ctx, task.ColumnID)
		if err != nil {
			return err
		}
	}

	// Snapshot the affected columns. The snapshots are read outside the
	// commit transaction; version checks at commit catch any writer that
	// slipped in between.
	source, err := s.tasks.ListActiveByColumn(ctx, task.ColumnID)
	if err != nil {
		return err
	}
	var target []*domain.Task
	if targetColumn.ID != task.ColumnID {
		target, err = s.tasks.ListActiveByColumn(ctx, targetColumn.ID)
		if err != nil {
			return err
		}
		if !targetColumn.AcceptsTasks(len(target), 1) {
			return ErrWIPLimitExceeded
		}
	}

	plan, err := position.PlanMove(task, targetColumn, source, target, cmd.TargetIndex)
	if err != nil {
		return mapPlanErr(err)
	}
	if plan.Empty() {
		return nil
	}

	placements := placementsWithVersions(plan.Placements(), source, target)

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cols := s.columns.WithTx(tx)
		if err := cols.BumpVersion(ctx, sourceColumn.ID, sourceColumn.Version); err != nil {
			return err
		}
		if targetColumn.ID != sourceColumn.ID {
			if err := cols.BumpVersion(ctx, targetColumn.ID, targetColumn.Version); err != nil {
				return err
			}
		}
		return s.tasks.WithTx(tx).ApplyPlacements(ctx, placements)
	})
	if err != nil {
		return mapCommitErr(err)
	}

	publish(ctx, s.logger, s.broadcaster,
		realtime.NewEvent(realtime.EventTaskMoved, task.BoardID).
			WithTask(task.ID).
			WithMove(task.ColumnID, targetColumn.ID))
	return nil
}

// UpdateTask changes a task's title, priority, or due date.
func (s *TaskService) UpdateTask(ctx context.Context, callerID uuid.UUID, cmd UpdateTaskCommand) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, cmd.TaskID)
	if err != nil {
		return nil, err
	}

	if _, err := requireRole(ctx, s.memberships, task.BoardID, callerID, domain.RoleMember); err != nil {
		return nil, err
	}
	if err := s.checkBoardActive(ctx, task.BoardID); err != nil {
		return nil, err
	}

	if cmd.Title != nil {
		task.Title = *cmd.Title
	}
	if cmd.Priority != nil {
		task.Priority = *cmd.Priority
	}
	if cmd.ClearDue {
		task.DueDate = nil
	} else if cmd.DueDate != nil {
		task.DueDate = cmd.DueDate
	}
	task.UpdatedAt = time.Now().UTC()

	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Update(ctx, task)
	})
	if err != nil {
		return nil, mapCommitErr(err)
	}

	publish(ctx, s.logger, s.broadcaster,
		realtime.NewEvent(realtime.EventTaskUpdated, task.BoardID).WithTask(task.ID))
	return task, nil
}

// AssignTask sets or clears a task's assignee. The assignee must hold an
// active membership on the task's board; any role qualifies.
func (s *TaskService) AssignTask(ctx context.Context, callerID, taskID uuid.UUID, assigneeID *uuid.UUID) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}

	if _, err := requireRole(ctx, s.memberships, task.BoardID, callerID, domain.RoleMember); err != nil {
		return err
	}
	if err := s.checkBoardActive(ctx, task.BoardID); err != nil {
		return err
	}

	if assigneeID != nil {
		assignee, err := s.memberships.Get(ctx, task.BoardID, *assigneeID)
		if err != nil && !store.IsNotFound(err) {
			return err
		}
		if err := authz.CheckAssignee(assignee); err != nil {
			return mapGuardErr(err)
		}
	}

	task.AssigneeID = assigneeID
	task.UpdatedAt = time.Now().UTC()

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Update(ctx, task)
	})
	if err != nil {
		return mapCommitErr(err)
	}

	event := realtime.NewEvent(realtime.EventTaskAssigned, task.BoardID).WithTask(task.ID)
	if assigneeID != nil {
		event = event.WithUser(*assigneeID)
	}
	publish(ctx, s.logger, s.broadcaster, event)
	return nil
}

// ArchiveTask removes the task from its column's active set, closing the
// index gap it leaves behind.
func (s *TaskService) ArchiveTask(ctx context.Context, callerID, taskID uuid.UUID) error {
	return s.retireTask(ctx, callerID, taskID, func(ctx context.Context, tx *sql.Tx, task *domain.Task) error {
		task.Archived = true
		task.UpdatedAt = time.Now().UTC()
		return s.tasks.WithTx(tx).Update(ctx, task)
	}, realtime.EventTaskArchived)
}

// DeleteTask soft-deletes the task, closing the index gap it leaves behind.
func (s *TaskService) DeleteTask(ctx context.Context, callerID, taskID uuid.UUID) error {
	return s.retireTask(ctx, callerID, taskID, func(ctx context.Context, tx *sql.Tx, task *domain.Task) error {
		return s.tasks.WithTx(tx).MarkDeleted(ctx, task.ID)
	}, realtime.EventTaskDeleted)
}

// UnarchiveTask returns an archived task to the end of its column.
func (s *TaskService) UnarchiveTask(ctx context.Context, callerID, taskID uuid.UUID) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}

	if _, err := requireRole(ctx, s.memberships, task.BoardID, callerID, domain.RoleMember); err != nil {
		return err
	}
	if err := s.checkBoardActive(ctx, task.BoardID); err != nil {
		return err
	}
	if !task.Archived {
		return nil
	}

	column, err := s.columns.GetByID(ctx, task.ColumnID)
	if err != nil {
		return err
	}
	snapshot, err := s.tasks.ListActiveByColumn(ctx, task.ColumnID)
	if err != nil {
		return err
	}

	task.Archived = false
	task.Position = position.NextIndex(snapshot)
	task.UpdatedAt = time.Now().UTC()

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.columns.WithTx(tx).BumpVersion(ctx, column.ID, column.Version); err != nil {
			return err
		}
		return s.tasks.WithTx(tx).Update(ctx, task)
	})
	if err != nil {
		return mapCommitErr(err)
	}

	publish(ctx, s.logger, s.broadcaster,
		realtime.NewEvent(realtime.EventTaskUnarchived, task.BoardID).WithTask(task.ID).WithColumn(task.ColumnID))
	return nil
}

// retireTask is the shared shape of archive and delete: authorize, snapshot
// the column, close the gap above the task, apply the retirement mutation
// and the shifts in one transaction, then broadcast.
func (s *TaskService) retireTask(
	ctx context.Context,
	callerID, taskID uuid.UUID,
	retire func(ctx context.Context, tx *sql.Tx, task *domain.Task) error,
	eventType realtime.EventType,
) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}

	if _, err := requireRole(ctx, s.memberships, task.BoardID, callerID, domain.RoleMember); err != nil {
		return err
	}
	if err := s.checkBoardActive(ctx, task.BoardID); err != nil {
		return err
	}

	column, err := s.columns.GetByID(ctx, task.ColumnID)
	if err != nil {
		return err
	}
	snapshot, err := s.tasks.ListActiveByColumn(ctx, task.ColumnID)
	if err != nil {
		return err
	}

	shifts := position.CloseGap(task, snapshot)
	placements := placementsWithVersions(shifts, snapshot, nil)

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.columns.WithTx(tx).BumpVersion(ctx, column.ID, column.Version); err != nil {
			return err
		}
		if err := retire(ctx, tx, task); err != nil {
			return err
		}
		if len(placements) == 0 {
			return nil
		}
		return s.tasks.WithTx(tx).ApplyPlacements(ctx, placements)
	})
	if err != nil {
		return mapCommitErr(err)
	}

	publish(ctx, s.logger, s.broadcaster,
		realtime.NewEvent(eventType, task.BoardID).WithTask(task.ID).WithColumn(task.ColumnID))
	return nil
}

func (s *TaskService) checkBoardActive(ctx context.Context, boardID uuid.UUID) error {
	board, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return err
	}
	if board.Archived {
		return ErrBoardArchived
	}
	return nil
}

// placementsWithVersions attaches the versions observed in the loaded
// snapshots to the engine's placement deltas, forming the guarded batch the
// store commits.
func placementsWithVersions(placements []position.TaskPlacement, snapshots ...[]*domain.Task) []store.TaskPlacement {
	versions := make(map[uuid.UUID]int64)
	for _, snapshot := range snapshots {
		for _, t := range snapshot {
			versions[t.ID] = t.Version
		}
	}

	out := make([]store.TaskPlacement, 0, len(placements))
	for _, p := range placements {
		out = append(out, store.TaskPlacement{
			TaskID:          p.TaskID,
			ColumnID:        p.ColumnID,
			Position:        p.Index,
			ExpectedVersion: versions[p.TaskID],
		})
	}
	return out
}
