package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis pub/sub channel board events travel on.
const DefaultChannel = "trellis:board-events"

// bridgeEnvelope wraps an event with the publishing instance's ID so an
// instance can skip its own events echoed back by the pub/sub channel and
// keep delivery at-most-once for local sessions.
type bridgeEnvelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// RedisBridge spans the topic registries of multiple API instances over a
// Redis pub/sub channel. Each instance publishes its accepted mutations to
// the channel and re-delivers events from other instances into its own local
// registry, so sessions see mutations accepted anywhere. The bridge inherits
// the broadcaster contract: best-effort, at-most-once, no replay.
type RedisBridge struct {
	client     *redis.Client
	channel    string
	instanceID string
	local      Broadcaster
	logger     *slog.Logger
}

// NewRedisBridge creates a bridge over the given Redis client. local receives
// events arriving from other instances.
func NewRedisBridge(client *redis.Client, channel string, local Broadcaster, logger *slog.Logger) *RedisBridge {
	if client == nil {
		panic("client cannot be nil for RedisBridge")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBridge{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		local:      local,
		logger:     logger.With(slog.String("component", "redis_bridge")),
	}
}

var _ Broadcaster = (*RedisBridge)(nil)

// Publish sends the event to the Redis channel. A publish failure is a
// broadcast failure: logged and swallowed, never surfaced to the mutation's
// success path.
func (b *RedisBridge) Publish(ctx context.Context, event Event) {
	data, err := json.Marshal(bridgeEnvelope{Origin: b.instanceID, Event: event})
	if err != nil {
		b.logger.Error("failed to encode event for bridge",
			slog.String("event_type", string(event.Type)),
			slog.String("error", err.Error()))
		return
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Warn("failed to publish event to bridge",
			slog.String("event_type", string(event.Type)),
			slog.String("board_id", event.BoardID.String()),
			slog.String("error", err.Error()))
	}
}

// Run subscribes to the bridge channel and re-delivers events from other
// instances into the local broadcaster until the context is canceled. On a
// dropped pub/sub connection it backs off briefly and resubscribes.
func (b *RedisBridge) Run(ctx context.Context) {
	for {
		sub := b.client.Subscribe(ctx, b.channel)
		ch := sub.Channel()

	receive:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break receive
				}
				var envelope bridgeEnvelope
				if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
					b.logger.Warn("dropping undecodable bridge event",
						slog.String("error", err.Error()))
					continue
				}
				if envelope.Origin == b.instanceID {
					// Our own publish echoed back; local sessions already
					// received it.
					continue
				}
				b.local.Publish(ctx, envelope.Event)
			}
		}

		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		b.logger.Error("bridge pubsub channel closed, resubscribing")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
