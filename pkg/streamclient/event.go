package streamclient

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of board mutation an event announces.
type EventType string

// Event types emitted on a board stream.
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

// Event is one decoded stream frame. Events carry identifiers only, never
// entity bodies; treat each one as a hint to re-fetch through the REST API.
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

func decodeEvent(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}
