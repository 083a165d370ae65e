package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trellis-kanban/trellis-api/internal/realtime"
)

func TestSSESessionSend(t *testing.T) {
	t.Parallel()

	t.Run("buffers events up to capacity", func(t *testing.T) {
		t.Parallel()

		session := newSSESession()
		event := realtime.NewEvent(realtime.EventTaskMoved, uuid.New())

		for i := 0; i < sessionBufferSize; i++ {
			assert.True(t, session.Send(event))
		}
		assert.False(t, session.Send(event), "full buffer must drop, not block")
	})

	t.Run("sessions have distinct IDs", func(t *testing.T) {
		t.Parallel()

		a := newSSESession()
		b := newSSESession()
		assert.NotEqual(t, a.ID(), b.ID())
	})
}

func TestWriteEventFrame(t *testing.T) {
	t.Parallel()

	boardID := uuid.New()
	taskID := uuid.New()
	event := realtime.NewEvent(realtime.EventTaskMoved, boardID).WithTask(taskID)

	rec := httptest.NewRecorder()
	require.NoError(t, writeEventFrame(rec, event))

	body := rec.Body.String()
	assert.Contains(t, body, "event: task_moved\n")
	assert.Contains(t, body, "data: ")
	assert.True(t, len(body) >= 4 && body[len(body)-2:] == "\n\n", "frame must end with a blank line")

	// The data line must decode back to the identifier payload.
	var start int
	for i := 0; i+6 <= len(body); i++ {
		if body[i:i+6] == "data: " {
			start = i + 6
			break
		}
	}
	end := start
	for end < len(body) && body[end] != '\n' {
		end++
	}
	var decoded realtime.Event
	require.NoError(t, json.Unmarshal([]byte(body[start:end]), &decoded))
	assert.Equal(t, boardID, decoded.BoardID)
	require.NotNil(t, decoded.TaskID)
	assert.Equal(t, taskID, *decoded.TaskID)
}
