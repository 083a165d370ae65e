package main

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trellis-kanban/trellis-api/internal/realtime"
)

type recordingSession struct {
	id string

	mu       sync.Mutex
	received []realtime.Event
}

func (s *recordingSession) ID() string { return s.id }

func (s *recordingSession) Send(event realtime.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, event)
	return true
}

func (s *recordingSession) events() []realtime.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]realtime.Event, len(s.received))
	copy(out, s.received)
	return out
}

// The composed publish path must always deliver to sessions on the
// publishing instance, with or without the Redis bridge in play.
func TestNewBroadcaster(t *testing.T) {
	boardID := uuid.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("without a bridge it is the local broadcaster", func(t *testing.T) {
		registry := realtime.NewTopicRegistry()
		local := realtime.NewLocalBroadcaster(registry, logger)

		session := &recordingSession{id: "s1"}
		registry.Join(boardID, session)

		broadcaster := newBroadcaster(local, nil)
		broadcaster.Publish(context.Background(), realtime.NewEvent(realtime.EventBoardUpdated, boardID))

		require.Len(t, session.events(), 1)
	})

	t.Run("with a bridge local sessions still receive exactly once", func(t *testing.T) {
		srv := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		registry := realtime.NewTopicRegistry()
		local := realtime.NewLocalBroadcaster(registry, logger)
		bridge := realtime.NewRedisBridge(client, "", local, logger)
		go bridge.Run(ctx)

		require.Eventually(t, func() bool {
			return client.PubSubNumSub(ctx, realtime.DefaultChannel).Val()[realtime.DefaultChannel] >= 1
		}, 2*time.Second, 10*time.Millisecond)

		session := &recordingSession{id: "s1"}
		registry.Join(boardID, session)

		broadcaster := newBroadcaster(local, bridge)
		broadcaster.Publish(ctx, realtime.NewEvent(realtime.EventTaskMoved, boardID).WithTask(uuid.New()))

		require.Eventually(t, func() bool {
			return len(session.events()) >= 1
		}, 2*time.Second, 5*time.Millisecond, "session on the publishing instance must receive the event")

		// Allow any echo through the bridge to arrive before asserting
		// at-most-once delivery.
		time.Sleep(100 * time.Millisecond)
		assert.Len(t, session.events(), 1)
		assert.Equal(t, realtime.EventTaskMoved, session.events()[0].Type)
	})
}
