package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trellis-kanban/trellis-api/internal/domain"
)

func TestNewTask(t *testing.T) {
	t.Parallel()

	boardID := uuid.New()
	columnID := uuid.New()

	t.Run("valid task", func(t *testing.T) {
		t.Parallel()

		task, err := domain.NewTask(boardID, columnID, "  Fix the build  ", 0, domain.PriorityHigh)
		require.NoError(t, err)
		assert.Equal(t, "Fix the build", task.Title)
		assert.Equal(t, domain.PriorityHigh, task.Priority)
		assert.False(t, task.Archived)
		assert.Zero(t, task.Version)
	})

	t.Run("blank title rejected", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewTask(boardID, columnID, "   ", 0, domain.PriorityMedium)
		assert.ErrorIs(t, err, domain.ErrTaskTitleEmpty)
	})

	t.Run("unknown priority rejected", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewTask(boardID, columnID, "Fix", 0, domain.Priority("critical"))
		require.Error(t, err)
	})

	t.Run("negative position rejected", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewTask(boardID, columnID, "Fix", -2, domain.PriorityLow)
		assert.ErrorIs(t, err, domain.ErrTaskPositionNegative)
	})

	t.Run("missing column rejected", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewTask(boardID, uuid.Nil, "Fix", 0, domain.PriorityLow)
		assert.ErrorIs(t, err, domain.ErrTaskColumnIDEmpty)
	})
}

func TestPriorityValid(t *testing.T) {
	t.Parallel()

	for _, p := range []domain.Priority{
		domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh, domain.PriorityUrgent,
	} {
		assert.True(t, p.Valid(), string(p))
	}
	assert.False(t, domain.Priority("").Valid())
	assert.False(t, domain.Priority("blocker").Valid())
}
