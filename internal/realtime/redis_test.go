package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func waitForEvents(t *testing.T, session *stubSession, n int) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		if len(session.events()) >= n {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, got %d", n, len(session.events()))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRedisBridge(t *testing.T) {
	boardID := uuid.New()

	t.Run("event published by one instance reaches the other's sessions", func(t *testing.T) {
		client := newTestRedis(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		registryA := NewTopicRegistry()
		registryB := NewTopicRegistry()
		localB := NewLocalBroadcaster(registryB, discardLogger())

		bridgeA := NewRedisBridge(client, "", NewLocalBroadcaster(registryA, discardLogger()), discardLogger())
		bridgeB := NewRedisBridge(client, "", localB, discardLogger())
		go bridgeB.Run(ctx)

		// Give the subscriber a moment to attach.
		require.Eventually(t, func() bool {
			return client.PubSubNumSub(ctx, DefaultChannel).Val()[DefaultChannel] >= 1
		}, 2*time.Second, 10*time.Millisecond)

		remote := newStubSession("remote")
		registryB.Join(boardID, remote)

		bridgeA.Publish(ctx, NewEvent(EventTaskMoved, boardID).WithTask(uuid.New()))

		waitForEvents(t, remote, 1)
		assert.Equal(t, EventTaskMoved, remote.events()[0].Type)
	})

	t.Run("an instance skips its own echoed events", func(t *testing.T) {
		client := newTestRedis(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		registry := NewTopicRegistry()
		local := NewLocalBroadcaster(registry, discardLogger())
		bridge := NewRedisBridge(client, "", local, discardLogger())
		go bridge.Run(ctx)

		require.Eventually(t, func() bool {
			return client.PubSubNumSub(ctx, DefaultChannel).Val()[DefaultChannel] >= 1
		}, 2*time.Second, 10*time.Millisecond)

		session := newStubSession("s1")
		registry.Join(boardID, session)

		// Publish through the fanout the way services do: local first, then
		// the bridge. The session must see the event exactly once.
		fanout := FanoutBroadcaster{local, bridge}
		fanout.Publish(ctx, NewEvent(EventTaskCreated, boardID))

		waitForEvents(t, session, 1)
		// Allow any echo to arrive before asserting at-most-once.
		time.Sleep(100 * time.Millisecond)
		assert.Len(t, session.events(), 1)
	})

	t.Run("publish failure never panics or surfaces", func(t *testing.T) {
		srv := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
		bridge := NewRedisBridge(client, "", nil, discardLogger())

		srv.Close()
		_ = client.Close()

		bridge.Publish(context.Background(), NewEvent(EventBoardUpdated, boardID))
	})
}
