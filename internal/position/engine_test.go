package position

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trellis-kanban/trellis-api/internal/domain"
)

// columnFixture builds a column and n tasks at indices 0..n-1.
func columnFixture(t *testing.T, boardID uuid.UUID, n int) (*domain.Column, []*domain.Task) {
	t.Helper()

	column, err := domain.NewColumn(boardID, "Column", 0)
	require.NoError(t, err)

	tasks := make([]*domain.Task, 0, n)
	for i := 0; i < n; i++ {
		task, err := domain.NewTask(boardID, column.ID, "Task", i, domain.PriorityMedium)
		require.NoError(t, err)
		tasks = append(tasks, task)
	}
	return column, tasks
}

// applyPlan plays a move plan onto the given snapshots and returns the
// resulting column contents as columnID -> ordered task IDs.
func applyPlan(plan MovePlan, columns map[uuid.UUID][]*domain.Task) map[uuid.UUID][]uuid.UUID {
	placements := make(map[uuid.UUID]TaskPlacement)
	for _, p := range plan.Placements() {
		placements[p.TaskID] = p
	}

	byColumn := make(map[uuid.UUID]map[int]uuid.UUID)
	for _, tasks := range columns {
		for _, task := range tasks {
			columnID, index := task.ColumnID, task.Position
			if p, ok := placements[task.ID]; ok {
				columnID, index = p.ColumnID, p.Index
			}
			if byColumn[columnID] == nil {
				byColumn[columnID] = make(map[int]uuid.UUID)
			}
			byColumn[columnID][index] = task.ID
		}
	}

	result := make(map[uuid.UUID][]uuid.UUID)
	for columnID, slots := range byColumn {
		ordered := make([]uuid.UUID, len(slots))
		for index, taskID := range slots {
			if index < 0 || index >= len(slots) {
				// A hole or overflow means contiguity is broken; surface it
				// by returning the raw slot count mismatch.
				return nil
			}
			ordered[index] = taskID
		}
		result[columnID] = ordered
	}
	return result
}

func TestPlanMoveSameColumn(t *testing.T) {
	boardID := uuid.New()

	t.Run("move first task to the end shifts the window down", func(t *testing.T) {
		// "To Do" = [A(0), B(1), C(2)]; moving A to 2 yields B(0), C(1), A(2).
		column, tasks := columnFixture(t, boardID, 3)
		a, b, c := tasks[0], tasks[1], tasks[2]

		plan, err := PlanMove(a, column, tasks, nil, 2)
		require.NoError(t, err)

		assert.Equal(t, TaskPlacement{TaskID: a.ID, ColumnID: column.ID, Index: 2}, plan.Moved)

		result := applyPlan(plan, map[uuid.UUID][]*domain.Task{column.ID: tasks})
		require.NotNil(t, result)
		assert.Equal(t, []uuid.UUID{b.ID, c.ID, a.ID}, result[column.ID])
	})

	t.Run("move last task to the front shifts the window up", func(t *testing.T) {
		column, tasks := columnFixture(t, boardID, 3)
		a, b, c := tasks[0], tasks[1], tasks[2]

		plan, err := PlanMove(c, column, tasks, nil, 0)
		require.NoError(t, err)

		result := applyPlan(plan, map[uuid.UUID][]*domain.Task{column.ID: tasks})
		require.NotNil(t, result)
		assert.Equal(t, []uuid.UUID{c.ID, a.ID, b.ID}, result[column.ID])
	})

	t.Run("tasks outside the shift window keep their index", func(t *testing.T) {
		column, tasks := columnFixture(t, boardID, 5)

		// Move index 1 to index 3: indices 0 and 4 must not appear in the plan.
		plan, err := PlanMove(tasks[1], column, tasks, nil, 3)
		require.NoError(t, err)

		for _, shift := range plan.Shifts {
			assert.NotEqual(t, tasks[0].ID, shift.TaskID)
			assert.NotEqual(t, tasks[4].ID, shift.TaskID)
		}
	})

	t.Run("move to current slot is a no-op", func(t *testing.T) {
		column, tasks := columnFixture(t, boardID, 3)

		plan, err := PlanMove(tasks[1], column, tasks, nil, 1)
		require.NoError(t, err)
		assert.True(t, plan.Empty())
		assert.Empty(t, plan.Placements())
	})

	t.Run("index past the last slot is rejected", func(t *testing.T) {
		column, tasks := columnFixture(t, boardID, 3)

		_, err := PlanMove(tasks[0], column, tasks, nil, 3)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	})

	t.Run("negative index is rejected", func(t *testing.T) {
		column, tasks := columnFixture(t, boardID, 3)

		_, err := PlanMove(tasks[0], column, tasks, nil, -1)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	})
}

func TestPlanMoveCrossColumn(t *testing.T) {
	boardID := uuid.New()

	t.Run("move closes the source gap and opens a target slot", func(t *testing.T) {
		// "To Do" = [A(0), B(1)], "Done" = [C(0)].
		// Moving A to Done index 0 yields "To Do" = [B(0)], "Done" = [A(0), C(1)].
		todo, todoTasks := columnFixture(t, boardID, 2)
		done, doneTasks := columnFixture(t, boardID, 1)
		a, b, c := todoTasks[0], todoTasks[1], doneTasks[0]

		plan, err := PlanMove(a, done, todoTasks, doneTasks, 0)
		require.NoError(t, err)

		result := applyPlan(plan, map[uuid.UUID][]*domain.Task{
			todo.ID: todoTasks,
			done.ID: doneTasks,
		})
		require.NotNil(t, result)
		assert.Equal(t, []uuid.UUID{b.ID}, result[todo.ID])
		assert.Equal(t, []uuid.UUID{a.ID, c.ID}, result[done.ID])
	})

	t.Run("append to the end of the target column", func(t *testing.T) {
		source, sourceTasks := columnFixture(t, boardID, 1)
		target, targetTasks := columnFixture(t, boardID, 2)
		_ = source

		plan, err := PlanMove(sourceTasks[0], target, sourceTasks, targetTasks, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, plan.Moved.Index)
		assert.Empty(t, plan.Shifts, "appending must not shift existing tasks")
	})

	t.Run("move into an empty column", func(t *testing.T) {
		_, sourceTasks := columnFixture(t, boardID, 2)
		target, _ := columnFixture(t, boardID, 0)

		plan, err := PlanMove(sourceTasks[0], target, sourceTasks, nil, 0)
		require.NoError(t, err)
		assert.Equal(t, target.ID, plan.Moved.ColumnID)
		assert.Equal(t, 0, plan.Moved.Index)
		// Only the source gap closes.
		require.Len(t, plan.Shifts, 1)
		assert.Equal(t, 0, plan.Shifts[0].Index)
	})

	t.Run("column on another board is rejected", func(t *testing.T) {
		_, sourceTasks := columnFixture(t, boardID, 1)
		foreign, _ := columnFixture(t, uuid.New(), 0)

		_, err := PlanMove(sourceTasks[0], foreign, sourceTasks, nil, 0)
		assert.ErrorIs(t, err, ErrColumnNotOnBoard)
	})

	t.Run("index past the insertion range is rejected", func(t *testing.T) {
		_, sourceTasks := columnFixture(t, boardID, 1)
		target, targetTasks := columnFixture(t, boardID, 2)

		_, err := PlanMove(sourceTasks[0], target, sourceTasks, targetTasks, 3)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	})

	t.Run("task missing from its snapshot is rejected", func(t *testing.T) {
		_, sourceTasks := columnFixture(t, boardID, 2)
		target, _ := columnFixture(t, boardID, 0)

		stray, err := domain.NewTask(boardID, uuid.New(), "Stray", 0, domain.PriorityLow)
		require.NoError(t, err)

		_, err = PlanMove(stray, target, sourceTasks, nil, 0)
		assert.ErrorIs(t, err, ErrTaskNotInColumn)
	})
}

func TestPlanMoveContiguity(t *testing.T) {
	// Contiguity property: any accepted move keeps both affected columns on
	// the exact index set {0..n-1}.
	boardID := uuid.New()
	source, sourceTasks := columnFixture(t, boardID, 4)
	target, targetTasks := columnFixture(t, boardID, 3)

	for oldIndex := 0; oldIndex < len(sourceTasks); oldIndex++ {
		for newIndex := 0; newIndex <= len(targetTasks); newIndex++ {
			plan, err := PlanMove(sourceTasks[oldIndex], target, sourceTasks, targetTasks, newIndex)
			require.NoError(t, err)

			result := applyPlan(plan, map[uuid.UUID][]*domain.Task{
				source.ID: sourceTasks,
				target.ID: targetTasks,
			})
			require.NotNil(t, result, "move %d -> %d broke contiguity", oldIndex, newIndex)
			assert.Len(t, result[source.ID], len(sourceTasks)-1)
			assert.Len(t, result[target.ID], len(targetTasks)+1)
		}
	}
}

func TestPlanColumnReorder(t *testing.T) {
	boardID := uuid.New()

	makeColumns := func(t *testing.T, n int) []*domain.Column {
		t.Helper()
		columns := make([]*domain.Column, 0, n)
		for i := 0; i < n; i++ {
			c, err := domain.NewColumn(boardID, "Column", i)
			require.NoError(t, err)
			columns = append(columns, c)
		}
		return columns
	}

	t.Run("full permutation is applied as submitted", func(t *testing.T) {
		// Board columns [X(0), Y(1), Z(2)]; submitting Z=0, X=1, Y=2.
		columns := makeColumns(t, 3)
		x, y, z := columns[0], columns[1], columns[2]

		placements, err := PlanColumnReorder(columns, []ColumnPlacement{
			{ColumnID: z.ID, Position: 0},
			{ColumnID: x.ID, Position: 1},
			{ColumnID: y.ID, Position: 2},
		})
		require.NoError(t, err)

		byID := make(map[uuid.UUID]int)
		for _, p := range placements {
			byID[p.ColumnID] = p.Position
		}
		assert.Equal(t, 1, byID[x.ID])
		assert.Equal(t, 2, byID[y.ID])
		assert.Equal(t, 0, byID[z.ID])
	})

	t.Run("duplicate column ID is rejected", func(t *testing.T) {
		columns := makeColumns(t, 2)

		_, err := PlanColumnReorder(columns, []ColumnPlacement{
			{ColumnID: columns[0].ID, Position: 0},
			{ColumnID: columns[0].ID, Position: 1},
		})
		assert.ErrorIs(t, err, ErrPositionSetInvalid)
	})

	t.Run("duplicate position is rejected", func(t *testing.T) {
		columns := makeColumns(t, 2)

		_, err := PlanColumnReorder(columns, []ColumnPlacement{
			{ColumnID: columns[0].ID, Position: 0},
			{ColumnID: columns[1].ID, Position: 0},
		})
		assert.ErrorIs(t, err, ErrPositionSetInvalid)
	})

	t.Run("missing column is rejected", func(t *testing.T) {
		columns := makeColumns(t, 3)

		_, err := PlanColumnReorder(columns, []ColumnPlacement{
			{ColumnID: columns[0].ID, Position: 0},
			{ColumnID: columns[1].ID, Position: 1},
		})
		assert.ErrorIs(t, err, ErrPositionSetInvalid)
	})

	t.Run("unknown column is rejected", func(t *testing.T) {
		columns := makeColumns(t, 2)

		_, err := PlanColumnReorder(columns, []ColumnPlacement{
			{ColumnID: columns[0].ID, Position: 0},
			{ColumnID: uuid.New(), Position: 1},
		})
		assert.ErrorIs(t, err, ErrPositionSetInvalid)
	})

	t.Run("gapped positions are rejected", func(t *testing.T) {
		columns := makeColumns(t, 2)

		_, err := PlanColumnReorder(columns, []ColumnPlacement{
			{ColumnID: columns[0].ID, Position: 0},
			{ColumnID: columns[1].ID, Position: 2},
		})
		assert.ErrorIs(t, err, ErrPositionSetInvalid)
	})
}

func TestCloseGap(t *testing.T) {
	boardID := uuid.New()
	column, tasks := columnFixture(t, boardID, 4)
	_ = column

	t.Run("removal shifts only higher indices", func(t *testing.T) {
		shifts := CloseGap(tasks[1], tasks)
		require.Len(t, shifts, 2)
		for _, s := range shifts {
			assert.Contains(t, []uuid.UUID{tasks[2].ID, tasks[3].ID}, s.TaskID)
		}
	})

	t.Run("removing the last task shifts nothing", func(t *testing.T) {
		assert.Empty(t, CloseGap(tasks[3], tasks))
	})
}

func TestNextIndex(t *testing.T) {
	boardID := uuid.New()
	_, tasks := columnFixture(t, boardID, 2)

	assert.Equal(t, 2, NextIndex(tasks))
	assert.Equal(t, 0, NextIndex(nil))
}
