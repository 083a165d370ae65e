package realtime

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// stubSession records delivered events and can simulate a closed client.
type stubSession struct {
	id string

	mu       sync.Mutex
	received []Event
	broken   bool
}

func newStubSession(id string) *stubSession {
	return &stubSession{id: id}
}

func (s *stubSession) ID() string { return s.id }

func (s *stubSession) Send(event Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken {
		return false
	}
	s.received = append(s.received, event)
	return true
}

func (s *stubSession) events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.received))
	copy(out, s.received)
	return out
}

func TestTopicRegistryJoinLeave(t *testing.T) {
	boardID := uuid.New()

	t.Run("join is idempotent", func(t *testing.T) {
		registry := NewTopicRegistry()
		session := newStubSession("s1")

		registry.Join(boardID, session)
		registry.Join(boardID, session)

		assert.Equal(t, 1, registry.Count(boardID))
	})

	t.Run("leave of a non-member is a no-op", func(t *testing.T) {
		registry := NewTopicRegistry()
		registry.Leave(boardID, newStubSession("s1"))
		assert.Equal(t, 0, registry.Count(boardID))
	})

	t.Run("leave removes only the leaving session", func(t *testing.T) {
		registry := NewTopicRegistry()
		first := newStubSession("s1")
		second := newStubSession("s2")
		registry.Join(boardID, first)
		registry.Join(boardID, second)

		registry.Leave(boardID, first)

		assert.Equal(t, 1, registry.Count(boardID))
	})

	t.Run("topics are independent", func(t *testing.T) {
		registry := NewTopicRegistry()
		otherBoard := uuid.New()
		session := newStubSession("s1")
		registry.Join(boardID, session)

		assert.Equal(t, 1, registry.Count(boardID))
		assert.Equal(t, 0, registry.Count(otherBoard))
	})
}

func TestTopicRegistryConcurrentAccess(t *testing.T) {
	// Join, leave and iterate from many goroutines at once; the race
	// detector verifies membership is never corrupted.
	registry := NewTopicRegistry()
	boardID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session := newStubSession(uuid.NewString())
			for j := 0; j < 50; j++ {
				registry.Join(boardID, session)
				registry.Each(boardID, func(s Session) {
					s.Send(NewEvent(EventBoardUpdated, boardID))
				})
				registry.Leave(boardID, session)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, registry.Count(boardID))
}
