package logger

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"Error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown level", func(t *testing.T) {
		_, err := ParseLevel("verbose")
		assert.Error(t, err)
	})
}

func TestContextCarriesLogger(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("round trip", func(t *testing.T) {
		ctx := WithLogger(context.Background(), log)
		assert.Same(t, log, FromContext(ctx))
		assert.Same(t, log, FromContextOrDefault(ctx, nil))
	})

	t.Run("fallback when absent", func(t *testing.T) {
		assert.Same(t, log, FromContextOrDefault(context.Background(), log))
	})

	t.Run("default when absent and no fallback", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})
}
