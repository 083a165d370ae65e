package api

import (
	"time"

	"github.com/google/uuid"
)

// Common request/response structures

// CreateBoardRequest defines the payload for creating a board.
type CreateBoardRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// UpdateBoardRequest defines the payload for renaming a board.
type UpdateBoardRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// CreateColumnRequest defines the payload for appending a column to a board.
type CreateColumnRequest struct {
	Name     string     `json:"name"      validate:"required,min=1,max=100"`
	StatusID *uuid.UUID `json:"status_id"`
	WIPLimit *int       `json:"wip_limit" validate:"omitempty,gte=1"`
}

// UpdateColumnRequest defines the payload for updating a column. Absent
// fields are left unchanged; clear_wip_limit removes the limit entirely.
type UpdateColumnRequest struct {
	Name          *string `json:"name"            validate:"omitempty,min=1,max=100"`
	WIPLimit      *int    `json:"wip_limit"       validate:"omitempty,gte=1"`
	ClearWIPLimit bool    `json:"clear_wip_limit"`
}

// ColumnPositionEntry is one column's target slot in a reorder request.
type ColumnPositionEntry struct {
	ColumnID uuid.UUID `json:"column_id" validate:"required"`
	Position int       `json:"position"  validate:"gte=0"`
}

// ReorderColumnsRequest defines the payload for reordering a board's columns.
// The entries must cover every active column exactly once.
type ReorderColumnsRequest struct {
	Positions []ColumnPositionEntry `json:"positions" validate:"required,min=1,dive"`
}

// CreateTaskRequest defines the payload for creating a task in a column.
type CreateTaskRequest struct {
	ColumnID uuid.UUID  `json:"column_id" validate:"required"`
	Title    string     `json:"title"     validate:"required,min=1,max=500"`
	Priority string     `json:"priority"  validate:"omitempty,oneof=low medium high urgent"`
	StatusID *uuid.UUID `json:"status_id"`
	TypeID   *uuid.UUID `json:"type_id"`
	DueDate  *time.Time `json:"due_date"`
}

// MoveTaskRequest defines the payload for moving a task to a column slot.
type MoveTaskRequest struct {
	ColumnID uuid.UUID `json:"column_id" validate:"required"`
	Index    int       `json:"index"     validate:"gte=0"`
}

// UpdateTaskRequest defines the payload for updating a task. Absent fields
// are left unchanged; clear_due_date removes the due date entirely.
type UpdateTaskRequest struct {
	Title        *string    `json:"title"          validate:"omitempty,min=1,max=500"`
	Priority     *string    `json:"priority"       validate:"omitempty,oneof=low medium high urgent"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
}

// AssignTaskRequest defines the payload for setting or clearing a task's
// assignee. A null assignee_id clears the assignment.
type AssignTaskRequest struct {
	AssigneeID *uuid.UUID `json:"assignee_id"`
}

// AddMemberRequest defines the payload for adding a user to a board.
type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Role   string    `json:"role"    validate:"required,oneof=viewer member admin"`
}

// UpdateMemberRoleRequest defines the payload for changing a member's role.
type UpdateMemberRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=viewer member admin"`
}

// CreateCommentRequest defines the payload for commenting on a task.
type CreateCommentRequest struct {
	Body string `json:"body" validate:"required,min=1,max=10000"`
}

// UpdateCommentRequest defines the payload for editing a comment.
type UpdateCommentRequest struct {
	Body string `json:"body" validate:"required,min=1,max=10000"`
}
