package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	log, err := NewLogger(LoggingConfig{Level: "debug", Format: "json", OutputPath: path})
	require.NoError(t, err)

	log.WithSessionID("s-1").WithContextID("ws-9").Info("selector opened", zap.String("mode", "resume"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.Contains(t, line, `"session_id":"s-1"`)
	assert.Contains(t, line, `"context_id":"ws-9"`)
	assert.Contains(t, line, `"mode":"resume"`)
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	log, err := NewLogger(LoggingConfig{Level: "warn", Format: "json", OutputPath: path})
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "hidden"))
	assert.True(t, strings.Contains(string(data), "shown"))
}

func TestWithContext(t *testing.T) {
	log := Nop()
	assert.Same(t, log, log.WithContext(context.Background()))

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	child := log.WithContext(ctx)
	assert.NotSame(t, log, child)
	assert.Len(t, child.fields, 1)

	child = log.WithContext(ContextWithSessionID(ctx, "s-1"))
	require.Len(t, child.fields, 2)
	assert.Equal(t, "request_id", child.fields[0].Key)
	assert.Equal(t, "session_id", child.fields[1].Key)
	assert.Equal(t, "s-1", child.fields[1].String)
}

func TestNewLoggerBadOutputPath(t *testing.T) {
	_, err := NewLogger(LoggingConfig{OutputPath: filepath.Join(t.TempDir(), "missing", "out.log")})
	assert.Error(t, err)
}

func TestWithFieldsDoesNotShareBacking(t *testing.T) {
	base := Nop().WithFields(zap.String("a", "1"))
	left := base.WithFields(zap.String("b", "2"))
	right := base.WithFields(zap.String("c", "3"))
	assert.Equal(t, "b", left.fields[1].Key)
	assert.Equal(t, "c", right.fields[1].Key)
}

func TestDefaultAndSetDefault(t *testing.T) {
	assert.NotNil(t, Default())
	custom := Nop()
	SetDefault(custom)
	assert.Same(t, custom, Default())
}
