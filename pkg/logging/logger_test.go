package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDir points the package at a temp log directory and resets global state.
func setupTestDir(t *testing.T) {
	t.Helper()

	origLogDir := logDir
	origInitErr := initErr
	origSessionID := sessionID

	logDir = t.TempDir()
	initErr = nil
	initOnce = sync.Once{}
	sessionID = ""
	sessionIDOnce = sync.Once{}
	SetLevel(LevelDebug)

	t.Cleanup(func() {
		logDir = origLogDir
		initErr = origInitErr
		initOnce = sync.Once{}
		sessionID = origSessionID
		sessionIDOnce = sync.Once{}
		SetLevel(LevelInfo)
	})
}

func TestNewLogger(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("controller")
	require.NoError(t, err)
	defer logger.Close()

	assert.Equal(t, "controller", logger.component)
	assert.NotEmpty(t, logger.sessionID)
	assert.FileExists(t, logger.LogPath())
	assert.True(t, strings.HasSuffix(filepath.Base(logger.LogPath()), "-playtabq.log"))
}

func TestLoggerFormatting(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	require.NoError(t, err)

	logger.Debugf("Debug message")
	logger.Infof("Info message %d", 7)
	logger.Warnf("Warning message")
	logger.Errorf("Error message")
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(logger.LogPath())
	require.NoError(t, err)

	for _, pattern := range []string{
		"[test] [DEBUG] Debug message",
		"[test] [INFO] Info message 7",
		"[test] [WARN] Warning message",
		"[test] [ERROR] Error message",
	} {
		assert.Contains(t, string(content), pattern)
	}
}

func TestMultipleComponentsShareFile(t *testing.T) {
	setupTestDir(t)

	l1, err := NewLogger("component1")
	require.NoError(t, err)
	defer l1.Close()
	l2, err := NewLogger("component2")
	require.NoError(t, err)
	defer l2.Close()

	assert.Equal(t, l1.sessionID, l2.sessionID)
	assert.Equal(t, l1.LogPath(), l2.LogPath())
}

func TestLevelFiltering(t *testing.T) {
	setupTestDir(t)
	SetLevel(LevelWarn)

	var buf bytes.Buffer
	logger := NewWriterLogger("filter", &buf)
	logger.Debugf("hidden debug")
	logger.Infof("hidden info")
	logger.Warnf("shown warn")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[filter] [WARN] shown warn")
}

func TestWithComponent(t *testing.T) {
	setupTestDir(t)

	var buf bytes.Buffer
	logger := NewWriterLogger("host", &buf).With("cdp")
	logger.Infof("attached")

	assert.Contains(t, buf.String(), "[host/cdp] [INFO] attached")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"":        LevelInfo,
		"normal":  LevelInfo,
		"debug":   LevelDebug,
		"verbose": LevelDebug,
		"quiet":   LevelWarn,
		"ERROR":   LevelError,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "verbosity %q", in)
	}
}

func TestLoggerCloseTwice(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	require.NoError(t, err)
	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close())
}

func TestGetSessionIDStable(t *testing.T) {
	setupTestDir(t)

	id := GetSessionID()
	assert.NotEmpty(t, id)
	assert.Equal(t, id, GetSessionID())
}
