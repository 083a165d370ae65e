package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Session is a live client connection subscribed to board topics. Send must
// not block: an implementation either accepts the event immediately or drops
// it and reports failure.
type Session interface {
	// ID identifies the session for logging and idempotent registry updates.
	ID() string

	// Send attempts to deliver the event to the client. A false return means
	// the event was dropped (slow or closed client); the registry treats that
	// as a per-session delivery failure only.
	Send(event Event) bool
}

// TopicRegistry maps each board ID to the set of live sessions joined to it.
// It is the only concurrently mutated in-memory structure of the core and is
// safe for concurrent Join/Leave/Each from any number of handler goroutines.
type TopicRegistry struct {
	mu     sync.RWMutex
	topics map[uuid.UUID]map[string]Session
}

// NewTopicRegistry creates an empty registry.
func NewTopicRegistry() *TopicRegistry {
	return &TopicRegistry{
		topics: make(map[uuid.UUID]map[string]Session),
	}
}

// Join subscribes the session to a board topic. Joining a topic the session
// already belongs to is a no-op.
func (r *TopicRegistry) Join(boardID uuid.UUID, session Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.topics[boardID]
	if !ok {
		members = make(map[string]Session)
		r.topics[boardID] = members
	}
	members[session.ID()] = session
}

// Leave unsubscribes the session from a board topic. Leaving a topic the
// session does not belong to is a no-op.
func (r *TopicRegistry) Leave(boardID uuid.UUID, session Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.topics[boardID]
	if !ok {
		return
	}
	delete(members, session.ID())
	if len(members) == 0 {
		delete(r.topics, boardID)
	}
}

// Count returns the number of sessions currently joined to the topic.
func (r *TopicRegistry) Count(boardID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[boardID])
}

// Each calls fn for every session currently joined to the topic. The member
// set is copied under the lock first, so fn runs without holding it and
// concurrent Join/Leave calls are never blocked by slow delivery.
func (r *TopicRegistry) Each(boardID uuid.UUID, fn func(Session)) {
	r.mu.RLock()
	members := make([]Session, 0, len(r.topics[boardID]))
	for _, s := range r.topics[boardID] {
		members = append(members, s)
	}
	r.mu.RUnlock()

	for _, s := range members {
		fn(s)
	}
}
