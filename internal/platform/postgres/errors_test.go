package postgres

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/trellis-kanban/trellis-api/internal/store"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    error
		expected error
	}{
		{
			name:     "nil passes through",
			input:    nil,
			expected: nil,
		},
		{
			name:     "no rows maps to not found",
			input:    sql.ErrNoRows,
			expected: store.ErrNotFound,
		},
		{
			name:     "unique violation maps to duplicate",
			input:    &pgconn.PgError{Code: uniqueViolationCode},
			expected: store.ErrDuplicate,
		},
		{
			name:     "foreign key violation maps to invalid entity",
			input:    &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "tasks_board_id_fkey"},
			expected: store.ErrInvalidEntity,
		},
		{
			name:     "check violation maps to invalid entity",
			input:    &pgconn.PgError{Code: checkViolationCode, ConstraintName: "columns_position_check"},
			expected: store.ErrInvalidEntity,
		},
		{
			name:     "not null violation maps to invalid entity",
			input:    &pgconn.PgError{Code: notNullViolationCode, ColumnName: "title"},
			expected: store.ErrInvalidEntity,
		},
		{
			name:     "serialization failure maps to conflict",
			input:    &pgconn.PgError{Code: serializationFailureCode},
			expected: store.ErrConflict,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := MapError(tc.input)
			if tc.expected == nil {
				assert.NoError(t, mapped)
				return
			}
			assert.ErrorIs(t, mapped, tc.expected)
		})
	}

	t.Run("unmapped errors pass through unchanged", func(t *testing.T) {
		sentinel := errors.New("connection refused")
		assert.Same(t, sentinel, MapError(sentinel))
	})
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: uniqueViolationCode}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: foreignKeyViolationCode}))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
	assert.False(t, IsUniqueViolation(nil))
}
