package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trellis-kanban/trellis-api/internal/domain"
	"github.com/trellis-kanban/trellis-api/internal/position"
	"github.com/trellis-kanban/trellis-api/internal/realtime"
	"github.com/trellis-kanban/trellis-api/internal/store"
)

// ColumnPosition is one entry of a ReorderColumns command.
type ColumnPosition struct {
	ColumnID uuid.UUID
	Position int
}

// ReorderColumnsCommand submits a full permutation of a board's active
// columns. Incomplete or duplicated permutations are rejected wholesale.
type ReorderColumnsCommand struct {
	BoardID   uuid.UUID
	Positions []ColumnPosition
}

// CreateColumnCommand appends a new column to a board.
type CreateColumnCommand struct {
	BoardID  uuid.UUID
	Name     string
	StatusID *uuid.UUID
	WIPLimit *int
}

// UpdateColumnCommand updates a column's mutable fields. Nil pointers leave
// the corresponding field unchanged.
type UpdateColumnCommand struct {
	ColumnID      uuid.UUID
	Name          *string
	WIPLimit      *int
	ClearWIPLimit bool
}

// BoardView is the read model clients re-fetch after receiving an event:
// the board plus its active columns in position order.
type BoardView struct {
	Board   *domain.Board    `json:"board"`
	Columns []*domain.Column `json:"columns"`
}

// BoardService handles board and column mutation commands.
type BoardService struct {
	db          *sql.DB
	boards      store.BoardStore
	columns     store.ColumnStore
	tasks       store.TaskStore
	memberships store.MembershipStore
	broadcaster realtime.Broadcaster
	logger      *slog.Logger
}

// NewBoardService creates a BoardService.
func NewBoardService(
	db *sql.DB,
	boards store.BoardStore,
	columns store.ColumnStore,
	tasks store.TaskStore,
	memberships store.MembershipStore,
	broadcaster realtime.Broadcaster,
	log *slog.Logger,
) *BoardService {
	if log == nil {
		log = slog.Default()
	}
	return &BoardService{
		db:          db,
		boards:      boards,
		columns:     columns,
		tasks:       tasks,
		memberships: memberships,
		broadcaster: broadcaster,
		logger:      log.With(slog.String("component", "board_service")),
	}
}

// CreateBoard creates a board and grants the creator the Admin membership,
// satisfying the at-least-one-admin invariant from the start.
func (s *BoardService) CreateBoard(ctx context.Context, callerID uuid.UUID, name string) (*domain.Board, error) {
	if callerID == uuid.Nil {
		return nil, ErrUnauthorized
	}

	board, err := domain.NewBoard(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}

	membership, err := domain.NewMembership(board.ID, callerID, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.boards.WithTx(tx).Create(ctx, board); err != nil {
			return err
		}
		return s.memberships.WithTx(tx).Create(ctx, membership)
	})
	if err != nil {
		return nil, mapCommitErr(err)
	}

	return board, nil
}

// GetBoard returns the board and its active columns in position order.
// Requires Viewer.
func (s *BoardService) GetBoard(ctx context.Context, callerID, boardID uuid.UUID) (*BoardView, error) {
	if _, err := requireRole(ctx, s.memberships, boardID, callerID, domain.RoleViewer); err != nil {
		return nil, err
	}

	board, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, err
	}
	columns, err := s.columns.ListActiveByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	return &BoardView{Board: board, Columns: columns}, nil
}

// ListColumnTasks returns a column's active tasks in index order.
// Requires Viewer.
func (s *BoardService) ListColumnTasks(ctx context.Context, callerID, columnID uuid.UUID) ([]*domain.Task, error) {
	column, err := s.columns.GetByID(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if _, err := requireRole(ctx, s.memberships, column.BoardID, callerID, domain.RoleViewer); err != nil {
		return nil, err
	}
	return s.tasks.ListActiveByColumn(ctx, columnID)
}

// UpdateBoard renames the board. Requires Admin.
func (s *BoardService) UpdateBoard(ctx context.Context, callerID, boardID uuid.UUID, name string) (*domain.Board, error) {
	if _, err := requireRole(ctx, s.memberships, boardID, callerID, domain.RoleAdmin); err != nil {
		return nil, err
	}

	board, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board.Archived {
		return nil, ErrBoardArchived
	}
	if err := board.Rename(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.boards.WithTx(tx).Update(ctx, board)
	})
	if err != nil {
		return nil, mapCommitErr(err)
	}

	publish(ctx, s.logger, s.broadcaster, realtime.NewEvent(realtime.EventBoardUpdated, board.ID))
	return board, nil
}

// SetBoardArchived archives or unarchives the board. Requires Admin.
func (s *BoardService) SetBoardArchived(ctx context.Context, callerID, boardID uuid.UUID, archived bool) error {
	if _, err := requireRole(ctx, s.memberships, boardID, callerID, domain.RoleAdmin); err != nil {
		return err
	}

	board, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return err
	}
	if board.Archived == archived {
		return nil
	}

	board.Archived = archived
	board.UpdatedAt = time.Now().UTC()

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.boards.WithTx(tx).Update(ctx, board)
	})
	if err != nil {
		return mapCommitErr(err)
	}

	eventType := realtime.EventBoardArchived
	if !archived {
		eventType = realtime.EventBoardUnarchived
	}
	publish(ctx, s.logger, s.broadcaster, realtime.NewEvent(eventType, board.ID))
	return nil
}

// CreateColumn appends a new column at the end of the board. Requires Admin.
func (s *BoardService) CreateColumn(ctx context.Context, callerID uuid.UUID, cmd CreateColumnCommand) (*domain.Column, error) {
	if _, err := requireRole(ctx, s.memberships, cmd.BoardID, callerID, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.checkBoardActive(ctx, cmd.BoardID); err != nil {
		return nil, err
	}

	existing, err := s.columns.ListActiveByBoard(ctx, cmd.BoardID)
	if err != nil {
		return nil, err
	}

	column, err := domain.NewColumn(cmd.BoardID, cmd.Name, len(existing))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}
	column.StatusID = cmd.StatusID
	column.WIPLimit = cmd.WIPLimit
	if err := column.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.columns.WithTx(tx).Create(ctx, column)
	})
	if err != nil {
		return nil, mapCommitErr(err)
	}

	publish(ctx, s.logger, s.broadcaster,
		realtime.NewEvent(realtime.EventColumnCreated, column.BoardID).WithColumn(column.ID))
	return column, nil
}

// UpdateColumn changes a column's name or WIP limit. Requires Admin.
func (s *BoardService) UpdateColumn(ctx context.Context, callerID uuid.UUID, cmd UpdateColumnCommand) (*domain.Column, error) {
	column, err := s.columns.GetByID(ctx, cmd.ColumnID)
	if err != nil {
		return nil, err
	}

	if _, err := requireRole(ctx, s.memberships, column.BoardID, callerID, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.checkBoardActive(ctx, column.BoardID); err != nil {
		return nil, err
	}

	if cmd.Name != nil {
		column.Name = strings.TrimSpace(*cmd.Name)
	}
	if cmd.ClearWIPLimit {
		column.WIPLimit = nil
	} else if cmd.WIPLimit != nil {
		column.WIPLimit = cmd.WIPLimit
	}
	column.UpdatedAt = time.Now().UTC()

	if err := column.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.columns.WithTx(tx).Update(ctx, column)
	})
	if err != nil {
		return nil, mapCommitErr(err)
	}

	publish(ctx, s.logger, s.broadcaster,
		realtime.NewEvent(realtime.EventColumnUpdated, column.BoardID).WithColumn(column.ID))
	return column, nil
}

// DeleteColumn soft-deletes a column that holds no active tasks, closing the
// position gap among the board's remaining columns. Requires Admin.
func (s *BoardService) DeleteColumn(ctx context.Context, callerID, columnID uuid.UUID) error {
	column, err := s.columns.GetByID(ctx, columnID)
	if err != nil {
		return err
	}

	if _, err := requireRole(ctx, s.memberships, column.BoardID, callerID, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.checkBoardActive(ctx, column.BoardID); err != nil {
		return err
	}

	tasks, err := s.tasks.ListActiveByColumn(ctx, columnID)
	if err != nil {
		return err
	}
	if len(tasks) > 0 {
		return fmt.Errorf("%w: column still holds %d active tasks", ErrInvalidOperation, len(tasks))
	}

	siblings, err := s.columns.ListActiveByBoard(ctx, column.BoardID)
	if err != nil {
		return err
	}

	// Close the position gap above the deleted column.
	var placements []store.ColumnPlacement
	for _, c := range siblings {
		if c.ID == column.ID {
			continue
		}
		if c.Position > column.Position {
			placements = append(placements, store.ColumnPlacement{
				ColumnID:        c.ID,
				Position:        c.Position - 1,
				ExpectedVersion: c.Version,
			})
		}
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txColumns := s.columns.WithTx(tx)
		if err := txColumns.MarkDeleted(ctx, column.ID); err != nil {
			return err
		}
		if len(placements) == 0 {
			return nil
		}
		return txColumns.ApplyPlacements(ctx, placements)
	})
	if err != nil {
		return mapCommitErr(err)
	}

	publish(ctx, s.logger, s.broadcaster,
		realtime.NewEvent(realtime.EventColumnDeleted, column.BoardID).WithColumn(column.ID))
	return nil
}

// ReorderColumns applies a full permutation of the board's active columns.
// The submitted set must name every active column exactly once with the
// contiguous positions {0..m-1}; anything else is rejected wholesale and no
// column moves. Requires Admin.
func (s *BoardService) ReorderColumns(ctx context.Context, callerID uuid.UUID, cmd ReorderColumnsCommand) error {
	if _, err := requireRole(ctx, s.memberships, cmd.BoardID, callerID, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.checkBoardActive(ctx, cmd.BoardID); err != nil {
		return err
	}

	columns, err := s.columns.ListActiveByBoard(ctx, cmd.BoardID)
	if err != nil {
		return err
	}

	submitted := make([]position.ColumnPlacement, 0, len(cmd.Positions))
	for _, p := range cmd.Positions {
		submitted = append(submitted, position.ColumnPlacement{ColumnID: p.ColumnID, Position: p.Position})
	}

	planned, err := position.PlanColumnReorder(columns, submitted)
	if err != nil {
		return mapPlanErr(err)
	}

	versions := make(map[uuid.UUID]int64, len(columns))
	for _, c := range columns {
		versions[c.ID] = c.Version
	}

	placements := make([]store.ColumnPlacement, 0, len(planned))
	for _, p := range planned {
		placements = append(placements, store.ColumnPlacement{
			ColumnID:        p.ColumnID,
			Position:        p.Position,
			ExpectedVersion: versions[p.ColumnID],
		})
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.columns.WithTx(tx).ApplyPlacements(ctx, placements)
	})
	if err != nil {
		return mapCommitErr(err)
	}

	publish(ctx, s.logger, s.broadcaster, realtime.NewEvent(realtime.EventColumnsReordered, cmd.BoardID))
	return nil
}

func (s *BoardService) checkBoardActive(ctx context.Context, boardID uuid.UUID) error {
	board, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return err
	}
	if board.Archived {
		return ErrBoardArchived
	}
	return nil
}
