package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Comment-specific validation errors
var (
	// ErrCommentIDEmpty is returned when a comment ID is empty or nil.
	ErrCommentIDEmpty = errors.New("comment ID cannot be empty")

	// ErrCommentTaskIDEmpty is returned when a comment's task ID is empty or nil.
	ErrCommentTaskIDEmpty = errors.New("comment task ID cannot be empty")

	// ErrCommentBoardIDEmpty is returned when a comment's board ID is empty or nil.
	ErrCommentBoardIDEmpty = errors.New("comment board ID cannot be empty")

	// ErrCommentAuthorIDEmpty is returned when a comment's author ID is empty or nil.
	ErrCommentAuthorIDEmpty = errors.New("comment author ID cannot be empty")

	// ErrCommentBodyEmpty is returned when a comment's body is empty.
	ErrCommentBodyEmpty = errors.New("comment body cannot be empty")
)

// mentionPattern matches @handle references in comment bodies. Handles are
// word characters, dots and dashes, at least two characters long.
var mentionPattern = regexp.MustCompile(`(^|\s)@([\w.-]{2,})`)

// Comment is a user-authored note attached to a task.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	BoardID   uuid.UUID `json:"board_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewComment creates a new Comment on a task.
// Returns an error if validation fails.
func NewComment(taskID, boardID, authorID uuid.UUID, body string) (*Comment, error) {
	now := time.Now().UTC()
	comment := &Comment{
		ID:        uuid.New(),
		TaskID:    taskID,
		BoardID:   boardID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := comment.Validate(); err != nil {
		return nil, err
	}

	return comment, nil
}

// Validate checks if the Comment has valid data.
func (c *Comment) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCommentIDEmpty
	}

	if c.TaskID == uuid.Nil {
		return ErrCommentTaskIDEmpty
	}

	if c.BoardID == uuid.Nil {
		return ErrCommentBoardIDEmpty
	}

	if c.AuthorID == uuid.Nil {
		return ErrCommentAuthorIDEmpty
	}

	if strings.TrimSpace(c.Body) == "" {
		return ErrCommentBodyEmpty
	}

	return nil
}

// Mentions extracts the distinct @handles referenced in the comment body,
// in order of first appearance.
func (c *Comment) Mentions() []string {
	matches := mentionPattern.FindAllStringSubmatch(c.Body, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	handles := make([]string, 0, len(matches))
	for _, m := range matches {
		handle := m[2]
		if _, dup := seen[handle]; dup {
			continue
		}
		seen[handle] = struct{}{}
		handles = append(handles, handle)
	}
	return handles
}
