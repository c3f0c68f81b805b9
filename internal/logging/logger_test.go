package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevelFallsBackToInfo(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel("debug").Level())
	require.Equal(t, slog.LevelError, parseLevel("ERROR").Level())
	require.Equal(t, slog.LevelInfo, parseLevel("chatty").Level())
}

func TestNewTextRespectsLevel(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewText(buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown", slog.String("account", "holder1"))

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "msg=shown account=holder1")
}
