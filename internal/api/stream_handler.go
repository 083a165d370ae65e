package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/trellis-kanban/trellis-api/internal/api/shared"
	"github.com/trellis-kanban/trellis-api/internal/platform/logger"
	"github.com/trellis-kanban/trellis-api/internal/realtime"
	"github.com/trellis-kanban/trellis-api/internal/service"
)

// sessionBufferSize bounds how many undelivered events a client connection
// may accumulate. A full buffer drops new events rather than blocking the
// publisher; clients recover by re-fetching state.
const sessionBufferSize = 32

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 25 * time.Second

// sseSession adapts one server-sent-events connection to the topic registry.
type sseSession struct {
	id     string
	events chan realtime.Event
}

func newSSESession() *sseSession {
	return &sseSession{
		id:     uuid.NewString(),
		events: make(chan realtime.Event, sessionBufferSize),
	}
}

// ID implements realtime.Session.
func (s *sseSession) ID() string { return s.id }

// Send implements realtime.Session. It never blocks: when the buffer is
// full the event is dropped and false is returned.
func (s *sseSession) Send(event realtime.Event) bool {
	select {
	case s.events <- event:
		return true
	default:
		return false
	}
}

// StreamHandler serves the per-board server-sent-events stream.
type StreamHandler struct {
	memberService *service.MemberService
	registry      *realtime.TopicRegistry
	logger        *slog.Logger
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(
	memberService *service.MemberService,
	registry *realtime.TopicRegistry,
	logger *slog.Logger,
) *StreamHandler {
	if registry == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("registry cannot be nil for StreamHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for StreamHandler")
	}

	return &StreamHandler{
		memberService: memberService,
		registry:      registry,
		logger:        logger.With(slog.String("component", "stream_handler")),
	}
}

// StreamBoard handles GET /api/boards/{boardID}/stream requests. It holds
// the connection open and writes one SSE frame per board event until the
// client disconnects. Any board member, including viewers, may subscribe.
func (h *StreamHandler) StreamBoard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := pathUUID(w, r, "boardID")
	if !ok {
		return
	}

	if err := h.memberService.CheckViewer(r.Context(), userID, boardID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	session := newSSESession()
	h.registry.Join(boardID, session)
	defer h.registry.Leave(boardID, session)

	log.Debug("stream opened",
		slog.String("board_id", boardID.String()),
		slog.String("session_id", session.id))

	// Initial comment frame confirms the stream is live before any event.
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug("stream closed",
				slog.String("board_id", boardID.String()),
				slog.String("session_id", session.id))
			return

		case event := <-session.events:
			if err := writeEventFrame(w, event); err != nil {
				log.Debug("stream write failed",
					slog.String("session_id", session.id),
					slog.String("error", err.Error()))
				return
			}
			flusher.Flush()

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeEventFrame encodes one event as an SSE frame with the event type in
// the event field and the identifier payload as JSON data.
func writeEventFrame(w http.ResponseWriter, event realtime.Event) error {
	data, err := event.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}
