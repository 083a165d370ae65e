// Package streamclient is a Go client for the board event stream. It holds
// one server-sent-events connection per board, dispatches decoded events to
// registered handlers, and reconnects with backoff when the connection
// drops. Handlers receive identifiers only; callers re-fetch state through
// the REST API.
package streamclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// reconnectSchedule is the delay before each successive reconnect attempt.
// The first drop reconnects immediately; after the schedule is exhausted
// every further attempt waits the final step. A successful connection
// resets the schedule.
var reconnectSchedule = []time.Duration{
	0,
	2 * time.Second,
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
}

// ErrClosed is returned by Run after Close has been called.
var ErrClosed = errors.New("stream client closed")

// Handler processes one decoded board event.
type Handler func(event Event)

// Client subscribes to a single board's event stream.
type Client struct {
	baseURL string
	boardID uuid.UUID
	token   string
	http    *http.Client
	logger  *slog.Logger

	mu       sync.RWMutex
	handlers map[EventType][]Handler
	closed   bool
	cancel   context.CancelFunc
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.http = httpClient }
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for one board's stream. baseURL is the API root,
// e.g. "https://tracker.example.com"; token is the bearer token used to
// authenticate the stream request.
func New(baseURL string, boardID uuid.UUID, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		boardID:  boardID,
		token:    token,
		http:     &http.Client{},
		logger:   slog.Default(),
		handlers: make(map[EventType][]Handler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "stream_client"))
	return c
}

// On registers a handler for an event type. Registration is declarative:
// the handler table survives reconnects, so handlers registered before Run
// keep firing across every connection. Multiple handlers per type are
// invoked in registration order.
func (c *Client) On(eventType EventType, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = append(c.handlers[eventType], handler)
}

// Run connects and dispatches events until the context is cancelled or
// Close is called. Dropped connections are re-established following the
// reconnect schedule; events published while disconnected are missed, which
// is why handlers must treat every event as a hint to re-fetch.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	attempt := 0
	for {
		if err := c.waitBackoff(ctx, attempt); err != nil {
			return err
		}

		connected, err := c.stream(ctx)
		if ctx.Err() != nil {
			if c.isClosed() {
				return ErrClosed
			}
			return ctx.Err()
		}

		c.logger.Debug("stream disconnected",
			slog.String("board_id", c.boardID.String()),
			slog.Int("attempt", attempt),
			slog.String("error", errString(err)))

		// An established connection resets the schedule: the first attempt
		// after a healthy session drops reconnects immediately, and only
		// repeated failures back off.
		if connected {
			attempt = 0
		} else {
			attempt++
		}
	}
}

// Close stops the client. A concurrent Run returns ErrClosed.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// waitBackoff sleeps for the schedule step matching the attempt number.
func (c *Client) waitBackoff(ctx context.Context, attempt int) error {
	delay := BackoffDelay(attempt)
	if delay == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// BackoffDelay returns the reconnect delay for the given attempt number.
// Attempt 0 is the initial connection (no delay); attempts past the end of
// the schedule repeat the final step.
func BackoffDelay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	if attempt >= len(reconnectSchedule) {
		return reconnectSchedule[len(reconnectSchedule)-1]
	}
	return reconnectSchedule[attempt]
}

// stream holds one connection open and dispatches its frames. It returns
// when the server closes the connection or the context is cancelled. The
// bool reports whether a connection was established at all.
func (c *Client) stream(ctx context.Context) (bool, error) {
	url := fmt.Sprintf("%s/api/boards/%s/stream", c.baseURL, c.boardID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("connect stream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	c.logger.Debug("stream connected", slog.String("board_id", c.boardID.String()))

	scanner := bufio.NewScanner(resp.Body)
	var eventName, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if eventName != "" && data != "" {
				c.dispatch(eventName, data)
			}
			eventName, data = "", ""
		case strings.HasPrefix(line, ":"):
			// Comment frame: connection confirmation or heartbeat.
		case strings.HasPrefix(line, "event: "):
			eventName = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	return true, scanner.Err()
}

func (c *Client) dispatch(eventName, data string) {
	event, err := decodeEvent([]byte(data))
	if err != nil {
		c.logger.Warn("dropping undecodable event",
			slog.String("event", eventName),
			slog.String("error", err.Error()))
		return
	}

	c.mu.RLock()
	handlers := append([]Handler(nil), c.handlers[event.Type]...)
	c.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

func errString(err error) string {
	if err == nil {
		return "EOF"
	}
	return err.Error()
}
