package api_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trellis-kanban/trellis-api/internal/api"
	"github.com/trellis-kanban/trellis-api/internal/service"
	"github.com/trellis-kanban/trellis-api/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthorized", service.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"wrapped forbidden", fmt.Errorf("%w: caller is not a member of the board", service.ErrForbidden), http.StatusForbidden},
		{"board not found", store.ErrBoardNotFound, http.StatusNotFound},
		{"task not found", store.ErrTaskNotFound, http.StatusNotFound},
		{"conflict", store.ErrConflict, http.StatusConflict},
		{"duplicate", store.ErrDuplicate, http.StatusConflict},
		{"membership exists", store.ErrMembershipExists, http.StatusConflict},
		{"archived board", service.ErrBoardArchived, http.StatusUnprocessableEntity},
		{"wip limit", service.ErrWIPLimitExceeded, http.StatusUnprocessableEntity},
		{"invalid operation", service.ErrInvalidOperation, http.StatusUnprocessableEntity},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"unknown error", errors.New("database exploded"), http.StatusInternalServerError},
		{"nil error", nil, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, api.MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"forbidden", service.ErrForbidden, "You do not have permission to perform this operation"},
		{"board not found", store.ErrBoardNotFound, "Board not found"},
		{"column not found", store.ErrColumnNotFound, "Column not found"},
		{"task not found", store.ErrTaskNotFound, "Task not found"},
		{"comment not found", store.ErrCommentNotFound, "Comment not found"},
		{"user not found", store.ErrUserNotFound, "User not found"},
		{"conflict", store.ErrConflict, "The resource was modified concurrently; retry with fresh state"},
		{"archived board", service.ErrBoardArchived, "Board is archived"},
		{"wip limit", service.ErrWIPLimitExceeded, "Column WIP limit exceeded"},
		{"invalid operation", service.ErrInvalidOperation, "Operation cannot be performed"},
		{"nil error", nil, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, api.GetSafeErrorMessage(tt.err))
		})
	}

	t.Run("unknown errors never leak internals", func(t *testing.T) {
		t.Parallel()

		msg := api.GetSafeErrorMessage(errors.New("pq: connection to host db.internal:5432 refused"))
		assert.Equal(t, "An unexpected error occurred", msg)
		assert.NotContains(t, msg, "db.internal")
	})
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	t.Run("extracts field and tag", func(t *testing.T) {
		t.Parallel()

		err := errors.New(
			"Key: 'CreateTaskRequest.Title' Error:Field validation for 'Title' failed on the 'required' tag",
		)
		assert.Equal(t, "Invalid Title: required field", api.SanitizeValidationError(err))
	})

	t.Run("non-validation error falls back", func(t *testing.T) {
		t.Parallel()

		err := errors.New("some internal failure with secrets")
		assert.Equal(t, "Validation error", api.SanitizeValidationError(err))
	})
}
