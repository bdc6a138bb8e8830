package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogger_parseLevel(t *testing.T) {
	t.Run("valid value", func(t *testing.T) {
		tests := []struct {
			name     string
			input    string
			expected slog.Level
		}{
			{"Debug level", "DEBUG", slog.LevelDebug},
			{"Debug lowercase", "debug", slog.LevelDebug},
			{"Info level", "info", slog.LevelInfo},
			{"Warn level", "warn", slog.LevelWarn},
			{"Error level", "error", slog.LevelError},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				require.Equal(t, tt.expected, parseLevelString(tt.input))
			})
		}
	})

	t.Run("unknown value defaults to info", func(t *testing.T) {
		require.Equal(t, slog.LevelInfo, parseLevelString("whatever"))
	})
}

func TestLogger_New(t *testing.T) {
	t.Run("known environments", func(t *testing.T) {
		for _, env := range []string{EnvDevelopment, EnvProduction} {
			l, err := New(env, LevelInfo)

			require.NoError(t, err)
			require.NotNil(t, l)
		}
	})

	t.Run("unknown environment fails", func(t *testing.T) {
		_, err := New("staging", LevelInfo)

		require.Error(t, err, "unknown environment should be a startup error")
	})
}

func TestLogger_NoOp(t *testing.T) {
	l := NewNoOp()

	// Must not panic and must keep the interface on derived loggers
	l.Debug("msg", "k", "v")
	l.Info("msg")
	l.Warn("msg")
	l.Error("msg")
	l.With("k", "v").Info("msg")
	l.WithGroup("grp").Info("msg")
}
