package logutil

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("loud", FormatConsole)
	require.Error(t, err)

	_, err = New("info", "xml")
	require.ErrorContains(t, err, "unknown log format")

	l, err := New("WARN", "")
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zapcore.InfoLevel))
	require.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := build(zap.NewAtomicLevelAt(zapcore.InfoLevel), FormatJSON, zapcore.AddSync(&buf))
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("saved artifact", zap.String("asset", "Title_Logo"))
	require.NoError(t, l.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "saved artifact", entry["msg"])
	require.Equal(t, "Title_Logo", entry["asset"])
	require.Equal(t, "info", entry["level"])
}
