package realtime

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLocalBroadcaster(t *testing.T) {
	ctx := context.Background()
	boardID := uuid.New()

	t.Run("delivers to every joined session", func(t *testing.T) {
		registry := NewTopicRegistry()
		broadcaster := NewLocalBroadcaster(registry, discardLogger())

		first := newStubSession("s1")
		second := newStubSession("s2")
		registry.Join(boardID, first)
		registry.Join(boardID, second)

		taskID := uuid.New()
		broadcaster.Publish(ctx, NewEvent(EventTaskCreated, boardID).WithTask(taskID))

		require.Len(t, first.events(), 1)
		require.Len(t, second.events(), 1)
		assert.Equal(t, EventTaskCreated, first.events()[0].Type)
		assert.Equal(t, taskID, *first.events()[0].TaskID)
	})

	t.Run("does not deliver to other boards", func(t *testing.T) {
		registry := NewTopicRegistry()
		broadcaster := NewLocalBroadcaster(registry, discardLogger())

		other := newStubSession("s1")
		registry.Join(uuid.New(), other)

		broadcaster.Publish(ctx, NewEvent(EventTaskCreated, boardID))
		assert.Empty(t, other.events())
	})

	t.Run("a broken session does not block the others", func(t *testing.T) {
		registry := NewTopicRegistry()
		broadcaster := NewLocalBroadcaster(registry, discardLogger())

		broken := newStubSession("s1")
		broken.broken = true
		healthy := newStubSession("s2")
		registry.Join(boardID, broken)
		registry.Join(boardID, healthy)

		broadcaster.Publish(ctx, NewEvent(EventTaskMoved, boardID))

		assert.Empty(t, broken.events())
		assert.Len(t, healthy.events(), 1)
	})

	t.Run("publishing to an empty topic is a no-op", func(t *testing.T) {
		registry := NewTopicRegistry()
		broadcaster := NewLocalBroadcaster(registry, discardLogger())
		broadcaster.Publish(ctx, NewEvent(EventTaskDeleted, boardID))
	})
}

func TestFanoutBroadcaster(t *testing.T) {
	ctx := context.Background()
	boardID := uuid.New()

	registryA := NewTopicRegistry()
	registryB := NewTopicRegistry()
	fanout := FanoutBroadcaster{
		NewLocalBroadcaster(registryA, discardLogger()),
		NewLocalBroadcaster(registryB, discardLogger()),
	}

	a := newStubSession("a")
	b := newStubSession("b")
	registryA.Join(boardID, a)
	registryB.Join(boardID, b)

	fanout.Publish(ctx, NewEvent(EventColumnsReordered, boardID))

	assert.Len(t, a.events(), 1)
	assert.Len(t, b.events(), 1)
}

func TestEventEncodeDecode(t *testing.T) {
	boardID := uuid.New()
	from, to := uuid.New(), uuid.New()
	event := NewEvent(EventTaskMoved, boardID).WithTask(uuid.New()).WithMove(from, to)

	data, err := event.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, event.Type, decoded.Type)
	assert.Equal(t, event.BoardID, decoded.BoardID)
	assert.Equal(t, *event.TaskID, *decoded.TaskID)
	assert.Equal(t, from, *decoded.FromColumnID)
	assert.Equal(t, to, *decoded.ToColumnID)
}
