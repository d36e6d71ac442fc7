package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is the minimum severity a Logger writes.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a verbosity name from the daemon config to a Level.
// Unknown or empty names map to LevelInfo.
func ParseLevel(verbosity string) Level {
	switch strings.ToLower(strings.TrimSpace(verbosity)) {
	case "debug", "verbose":
		return LevelDebug
	case "warn", "warning", "quiet":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Logger writes component-tagged log lines for PlayTabQ.
// All loggers of one process share a session-specific file in ~/.playtabq/logs/.
type Logger struct {
	sessionID string
	component string
	file      *os.File
	logger    *log.Logger
	mu        sync.Mutex
	logPath   string
	closeOnce sync.Once
}

var (
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is the directory where log files are stored. Empty means
	// ~/.playtabq/logs, resolved on first use.
	logDir string

	initOnce sync.Once
	initErr  error

	levelMu  sync.RWMutex
	minLevel = LevelInfo
)

func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

func initLogDirectory() error {
	initOnce.Do(func() {
		if logDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				initErr = fmt.Errorf("failed to get home directory: %w", err)
				return
			}
			logDir = filepath.Join(homeDir, ".playtabq", "logs")
		}
		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
		}
	})
	return initErr
}

// SetLogDirectory overrides the log directory. It only has an effect before
// the first logger is created.
func SetLogDirectory(dir string) {
	logDir = dir
}

// SetLevel sets the minimum level for every logger in the process.
func SetLevel(level Level) {
	levelMu.Lock()
	defer levelMu.Unlock()
	minLevel = level
}

func enabled(level Level) bool {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return level >= minLevel
}

// NewLogger creates a logger for a component, writing to
// <log dir>/<session-id>-playtabq.log.
//
// If the log file cannot be opened, the returned logger writes to stderr and
// the error is returned alongside it so callers can report fallback mode.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, err), err
	}

	sessID := getSessionID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-playtabq.log", sessID))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		err = fmt.Errorf("failed to open log file: %w", err)
		return newFallbackLogger(component, err), err
	}

	return &Logger{
		sessionID: sessID,
		component: component,
		file:      file,
		logger:    log.New(file, "", 0),
		logPath:   logPath,
	}, nil
}

// NewWriterLogger creates a logger that writes to w instead of the session file.
// Tests and the headless executor's console echo use it.
func NewWriterLogger(component string, w io.Writer) *Logger {
	return &Logger{
		sessionID: getSessionID(),
		component: component,
		logger:    log.New(w, "", 0),
	}
}

// Discard returns a logger that drops everything.
func Discard(component string) *Logger {
	return NewWriterLogger(component, io.Discard)
}

func newFallbackLogger(component string, err error) *Logger {
	logger := log.New(os.Stderr, "", 0)
	l := &Logger{
		sessionID: getSessionID(),
		component: component,
		logger:    logger,
	}
	l.write(LevelWarn, fmt.Sprintf("file logging unavailable, using stderr: %v", err))
	return l
}

// With returns a logger for a sub-component sharing the same output.
func (l *Logger) With(component string) *Logger {
	return &Logger{
		sessionID: l.sessionID,
		component: l.component + "/" + component,
		logger:    l.logger,
		logPath:   l.logPath,
	}
}

func (l *Logger) write(level Level, message string) {
	if !enabled(level) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	l.logger.Printf("[%s] [%s] [%s] %s", timestamp, l.component, level, message)
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, v ...any) {
	l.write(LevelDebug, fmt.Sprintf(format, v...))
}

// Infof logs at info level.
func (l *Logger) Infof(format string, v ...any) {
	l.write(LevelInfo, fmt.Sprintf(format, v...))
}

// Warnf logs at warning level.
func (l *Logger) Warnf(format string, v ...any) {
	l.write(LevelWarn, fmt.Sprintf(format, v...))
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, v ...any) {
	l.write(LevelError, fmt.Sprintf(format, v...))
}

// Writer returns the underlying destination.
func (l *Logger) Writer() io.Writer {
	return l.logger.Writer()
}

// LogPath returns the path of the session log file, or "" for non-file loggers.
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// GetSessionID returns the session ID shared by all loggers in this process.
func GetSessionID() string {
	return getSessionID()
}

// GetLogDirectory returns the directory where logs are stored.
func GetLogDirectory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return logDir, nil
}
