package realtime

import (
	"context"
	"log/slog"
)

// Broadcaster publishes typed events to a board topic. Publish is
// fire-and-forget: it never blocks on a slow session, never fails the
// caller, and gives no delivery or ordering guarantee.
type Broadcaster interface {
	Publish(ctx context.Context, event Event)
}

// LocalBroadcaster delivers events to the sessions of an in-process
// TopicRegistry. Delivery failures to individual sessions are counted and
// logged, never propagated: once a mutation is committed, the worst a broken
// broadcast can cause is a client falling back to re-fetch.
type LocalBroadcaster struct {
	registry *TopicRegistry
	logger   *slog.Logger
}

// NewLocalBroadcaster creates a broadcaster over the given registry.
func NewLocalBroadcaster(registry *TopicRegistry, logger *slog.Logger) *LocalBroadcaster {
	if registry == nil {
		panic("registry cannot be nil for LocalBroadcaster")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalBroadcaster{
		registry: registry,
		logger:   logger.With(slog.String("component", "broadcaster")),
	}
}

var _ Broadcaster = (*LocalBroadcaster)(nil)

// Publish delivers the event to every session joined to the event's board
// topic. A failed delivery to one session does not affect the others.
func (b *LocalBroadcaster) Publish(ctx context.Context, event Event) {
	delivered, dropped := 0, 0
	b.registry.Each(event.BoardID, func(s Session) {
		if s.Send(event) {
			delivered++
		} else {
			dropped++
		}
	})

	log := b.logger
	if dropped > 0 {
		log.Warn("event dropped for slow or closed sessions",
			slog.String("event_type", string(event.Type)),
			slog.String("board_id", event.BoardID.String()),
			slog.Int("delivered", delivered),
			slog.Int("dropped", dropped))
		return
	}

	log.Debug("event published",
		slog.String("event_type", string(event.Type)),
		slog.String("board_id", event.BoardID.String()),
		slog.Int("delivered", delivered))
}

// FanoutBroadcaster publishes to several broadcasters in turn, typically the
// local registry plus the Redis bridge. Each target is attempted regardless
// of the others.
type FanoutBroadcaster []Broadcaster

var _ Broadcaster = (FanoutBroadcaster)(nil)

// Publish forwards the event to every target broadcaster.
func (f FanoutBroadcaster) Publish(ctx context.Context, event Event) {
	for _, b := range f {
		b.Publish(ctx, event)
	}
}
