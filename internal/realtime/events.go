// Package realtime fans accepted mutations out to live client sessions.
// Delivery is at-most-once and best-effort: events carry identifiers only,
// are never persisted or retried, and receivers reconcile by re-fetching
// authoritative state. The persisted commit, not the notification, is the
// source of truth.
package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the broadcast event catalogue, one per mutation kind.
type EventType string

// Broadcast event types.
const (
	EventTaskCreated    EventType = "task_created"
	EventTaskUpdated    EventType = "task_updated"
	EventTaskMoved      EventType = "task_moved"
	EventTaskDeleted    EventType = "task_deleted"
	EventTaskArchived   EventType = "task_archived"
	EventTaskUnarchived EventType = "task_unarchived"
	EventTaskAssigned   EventType = "task_assigned"

	EventCommentCreated EventType = "comment_created"
	EventCommentUpdated EventType = "comment_updated"
	EventCommentDeleted EventType = "comment_deleted"

	EventColumnCreated    EventType = "column_created"
	EventColumnUpdated    EventType = "column_updated"
	EventColumnDeleted    EventType = "column_deleted"
	EventColumnsReordered EventType = "columns_reordered"

	EventBoardUpdated    EventType = "board_updated"
	EventBoardArchived   EventType = "board_archived"
	EventBoardUnarchived EventType = "board_unarchived"

	EventMemberAdded       EventType = "member_added"
	EventMemberRemoved     EventType = "member_removed"
	EventMemberRoleUpdated EventType = "member_role_updated"

	EventUserMentioned EventType = "user_mentioned"
)

// Event is the wire shape delivered to sessions subscribed to a board topic.
// Payloads carry identifiers only, never entity bodies; receivers re-fetch.
type Event struct {
	Type         EventType  `json:"type"`
	BoardID      uuid.UUID  `json:"board_id"`
	TaskID       *uuid.UUID `json:"task_id,omitempty"`
	ColumnID     *uuid.UUID `json:"column_id,omitempty"`
	FromColumnID *uuid.UUID `json:"from_column_id,omitempty"`
	ToColumnID   *uuid.UUID `json:"to_column_id,omitempty"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	CommentID    *uuid.UUID `json:"comment_id,omitempty"`
	EmittedAt    time.Time  `json:"emitted_at"`
}

// NewEvent creates an event for a board topic with the emission timestamp set.
func NewEvent(eventType EventType, boardID uuid.UUID) Event {
	return Event{
		Type:      eventType,
		BoardID:   boardID,
		EmittedAt: time.Now().UTC(),
	}
}

// WithTask returns a copy of the event carrying the task ID.
func (e Event) WithTask(id uuid.UUID) Event {
	e.TaskID = &id
	return e
}

// WithColumn returns a copy of the event carrying the column ID.
func (e Event) WithColumn(id uuid.UUID) Event {
	e.ColumnID = &id
	return e
}

// WithMove returns a copy of the event carrying source and target columns.
func (e Event) WithMove(from, to uuid.UUID) Event {
	e.FromColumnID = &from
	e.ToColumnID = &to
	return e
}

// WithUser returns a copy of the event carrying the affected user ID.
func (e Event) WithUser(id uuid.UUID) Event {
	e.UserID = &id
	return e
}

// WithComment returns a copy of the event carrying the comment ID.
func (e Event) WithComment(id uuid.UUID) Event {
	e.CommentID = &id
	return e
}

// Encode serializes the event for transport.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent deserializes an event received from transport.
func DecodeEvent(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}
