// Package position computes invariant-preserving placement indices for task
// moves and column reorders. It is a pure package: it operates on in-memory
// snapshots loaded by the caller and produces delta sets to persist
// atomically. After a delta set is applied, the active tasks of every
// affected column hold exactly the index set {0..n-1}, and a board's active
// columns hold exactly {0..m-1}.
package position

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/trellis-kanban/trellis-api/internal/domain"
)

// Planning errors. All of them describe structurally invalid requests and map
// to the InvalidOperation outcome at the orchestration layer.
var (
	// ErrIndexOutOfRange is returned when a target index is outside the valid
	// insertion range of the target column.
	ErrIndexOutOfRange = errors.New("target index out of range")

	// ErrColumnNotOnBoard is returned when the target column belongs to a
	// different board than the moved task.
	ErrColumnNotOnBoard = errors.New("target column does not belong to the task's board")

	// ErrTaskNotInColumn is returned when the moved task is missing from the
	// source column snapshot.
	ErrTaskNotInColumn = errors.New("task not present in its column snapshot")

	// ErrPositionSetInvalid is returned when a submitted column permutation
	// has duplicate or unknown IDs, missing columns, or non-contiguous
	// positions.
	ErrPositionSetInvalid = errors.New("position set is not a valid permutation")
)

// TaskPlacement assigns a task a column and an index within it.
type TaskPlacement struct {
	TaskID   uuid.UUID
	ColumnID uuid.UUID
	Index    int
}

// ColumnPlacement assigns a column a position within its board.
type ColumnPlacement struct {
	ColumnID uuid.UUID
	Position int
}

// MovePlan is the full delta set a task move produces. Applied atomically it
// restores column contiguity in both affected columns. An empty plan
// (Empty() == true) means the move is a no-op.
type MovePlan struct {
	// Moved is the moved task's new placement.
	Moved TaskPlacement

	// Shifts are the index adjustments for every other affected task.
	Shifts []TaskPlacement
}

// Empty reports whether the plan changes nothing.
func (p MovePlan) Empty() bool {
	return p.Moved.TaskID == uuid.Nil && len(p.Shifts) == 0
}

// Placements returns every placement in the plan, moved task included.
func (p MovePlan) Placements() []TaskPlacement {
	if p.Empty() {
		return nil
	}
	all := make([]TaskPlacement, 0, len(p.Shifts)+1)
	all = append(all, p.Shifts...)
	all = append(all, p.Moved)
	return all
}

// PlanMove computes the delta set for moving task to targetIndex in the
// column targetColumn. source holds the active tasks of the task's current
// column in index order; target holds the active tasks of targetColumn in
// index order (ignored for same-column moves). Both snapshots must include
// only active tasks.
//
// Moving a task to its current slot returns an empty plan and shifts nothing.
func PlanMove(
	task *domain.Task,
	targetColumn *domain.Column,
	source []*domain.Task,
	target []*domain.Task,
	targetIndex int,
) (MovePlan, error) {
	if targetColumn.BoardID != task.BoardID {
		return MovePlan{}, fmt.Errorf("%w: column %s is on board %s, task is on board %s",
			ErrColumnNotOnBoard, targetColumn.ID, targetColumn.BoardID, task.BoardID)
	}

	oldIndex := -1
	for _, t := range source {
		if t.ID == task.ID {
			oldIndex = t.Position
			break
		}
	}
	if oldIndex < 0 {
		return MovePlan{}, fmt.Errorf("%w: task %s, column %s", ErrTaskNotInColumn, task.ID, task.ColumnID)
	}

	if targetColumn.ID == task.ColumnID {
		return planSameColumnMove(task, source, oldIndex, targetIndex)
	}
	return planCrossColumnMove(task, targetColumn, source, target, oldIndex, targetIndex)
}

func planSameColumnMove(task *domain.Task, tasks []*domain.Task, oldIndex, newIndex int) (MovePlan, error) {
	// The moved task occupies a slot already, so the valid range is one
	// narrower than for a cross-column insert.
	if newIndex < 0 || newIndex > len(tasks)-1 {
		return MovePlan{}, fmt.Errorf("%w: index %d, column holds %d tasks", ErrIndexOutOfRange, newIndex, len(tasks))
	}

	if newIndex == oldIndex {
		return MovePlan{}, nil
	}

	plan := MovePlan{
		Moved: TaskPlacement{TaskID: task.ID, ColumnID: task.ColumnID, Index: newIndex},
	}

	for _, t := range tasks {
		if t.ID == task.ID {
			continue
		}
		switch {
		case newIndex > oldIndex && t.Position > oldIndex && t.Position <= newIndex:
			plan.Shifts = append(plan.Shifts, TaskPlacement{TaskID: t.ID, ColumnID: t.ColumnID, Index: t.Position - 1})
		case newIndex < oldIndex && t.Position >= newIndex && t.Position < oldIndex:
			plan.Shifts = append(plan.Shifts, TaskPlacement{TaskID: t.ID, ColumnID: t.ColumnID, Index: t.Position + 1})
		}
	}

	return plan, nil
}

func planCrossColumnMove(
	task *domain.Task,
	targetColumn *domain.Column,
	source, target []*domain.Task,
	oldIndex, newIndex int,
) (MovePlan, error) {
	// Inserting may append at the end, so len(target) itself is valid.
	if newIndex < 0 || newIndex > len(target) {
		return MovePlan{}, fmt.Errorf("%w: index %d, column holds %d tasks", ErrIndexOutOfRange, newIndex, len(target))
	}

	plan := MovePlan{
		Moved: TaskPlacement{TaskID: task.ID, ColumnID: targetColumn.ID, Index: newIndex},
	}

	// Close the gap left behind in the source column.
	for _, t := range source {
		if t.ID == task.ID {
			continue
		}
		if t.Position > oldIndex {
			plan.Shifts = append(plan.Shifts, TaskPlacement{TaskID: t.ID, ColumnID: t.ColumnID, Index: t.Position - 1})
		}
	}

	// Open a slot in the target column.
	for _, t := range target {
		if t.Position >= newIndex {
			plan.Shifts = append(plan.Shifts, TaskPlacement{TaskID: t.ID, ColumnID: t.ColumnID, Index: t.Position + 1})
		}
	}

	return plan, nil
}

// PlanColumnReorder validates a full permutation of a board's active columns
// and returns the placements to persist. The submitted set must name every
// active column exactly once and assign the contiguous positions {0..m-1};
// anything else is rejected wholesale with ErrPositionSetInvalid and no
// partial result.
func PlanColumnReorder(columns []*domain.Column, submitted []ColumnPlacement) ([]ColumnPlacement, error) {
	if len(submitted) != len(columns) {
		return nil, fmt.Errorf("%w: submitted %d entries, board has %d active columns",
			ErrPositionSetInvalid, len(submitted), len(columns))
	}

	known := make(map[uuid.UUID]struct{}, len(columns))
	for _, c := range columns {
		known[c.ID] = struct{}{}
	}

	seenIDs := make(map[uuid.UUID]struct{}, len(submitted))
	seenPositions := make(map[int]struct{}, len(submitted))
	for _, p := range submitted {
		if _, ok := known[p.ColumnID]; !ok {
			return nil, fmt.Errorf("%w: column %s is not an active column of the board", ErrPositionSetInvalid, p.ColumnID)
		}
		if _, dup := seenIDs[p.ColumnID]; dup {
			return nil, fmt.Errorf("%w: column %s submitted twice", ErrPositionSetInvalid, p.ColumnID)
		}
		seenIDs[p.ColumnID] = struct{}{}

		if p.Position < 0 || p.Position >= len(submitted) {
			return nil, fmt.Errorf("%w: position %d outside {0..%d}", ErrPositionSetInvalid, p.Position, len(submitted)-1)
		}
		if _, dup := seenPositions[p.Position]; dup {
			return nil, fmt.Errorf("%w: position %d submitted twice", ErrPositionSetInvalid, p.Position)
		}
		seenPositions[p.Position] = struct{}{}
	}

	out := make([]ColumnPlacement, len(submitted))
	copy(out, submitted)
	return out, nil
}

// CloseGap computes the shifts that close the index gap left by removing a
// task (delete or archive) from its column. tasks is the column's active
// snapshot including the removed task.
func CloseGap(removed *domain.Task, tasks []*domain.Task) []TaskPlacement {
	var shifts []TaskPlacement
	for _, t := range tasks {
		if t.ID == removed.ID {
			continue
		}
		if t.Position > removed.Position {
			shifts = append(shifts, TaskPlacement{TaskID: t.ID, ColumnID: t.ColumnID, Index: t.Position - 1})
		}
	}
	return shifts
}

// NextIndex returns the insertion index for appending to a column snapshot,
// i.e. the current active task count.
func NextIndex(tasks []*domain.Task) int {
	return len(tasks)
}
