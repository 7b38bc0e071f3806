package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileLogger appends log lines to a per-run file so a recovery session
// leaves an audit trail on disk. Each logger opens a timestamped
// run-YYYYMMDD-HHMMSS.log in its directory and repoints the latest.log
// symlink at it. It is safe for concurrent use and applies the same level
// filtering as ConsoleLogger.
type FileLogger struct {
	path     string
	file     *os.File
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates dir if needed, opens a fresh timestamped run log
// inside it, and updates latest.log to point at the new file. logLevel
// follows the same rules as NewConsoleLogger.
func NewFileLogger(dir, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	name := fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("create run log: %w", err)
	}

	// Symlink to the base name so the link survives the directory moving.
	symlink := filepath.Join(dir, "latest.log")
	if _, err := os.Lstat(symlink); err == nil {
		if err := os.Remove(symlink); err != nil {
			file.Close()
			return nil, fmt.Errorf("replace latest.log: %w", err)
		}
	}
	if err := os.Symlink(name, symlink); err != nil {
		file.Close()
		return nil, fmt.Errorf("link latest.log: %w", err)
	}

	fl := &FileLogger{
		path:     path,
		file:     file,
		logLevel: normalizeLogLevel(logLevel),
	}
	fl.writeLine(fmt.Sprintf("=== Vestige Run Log ===\nStarted at: %s\n", time.Now().Format(time.RFC3339)))
	return fl, nil
}

// Path returns the run log file this logger writes to.
func (fl *FileLogger) Path() string {
	return fl.path
}

// Close closes the underlying log file. The logger must not be used after
// Close returns.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.file.Close()
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeLine(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

func (fl *FileLogger) writeLine(line string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.file.WriteString(line)
}

// TeeLogger forwards every message to all of its loggers. It lets commands
// log to the console and a run file at the same time.
type TeeLogger struct {
	loggers []Logger
}

// NewTeeLogger creates a TeeLogger fanning out to the given loggers. Nil
// entries are skipped.
func NewTeeLogger(loggers ...Logger) *TeeLogger {
	kept := make([]Logger, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			kept = append(kept, l)
		}
	}
	return &TeeLogger{loggers: kept}
}

// LogTrace forwards a trace-level message to every logger.
func (tl *TeeLogger) LogTrace(message string) {
	for _, l := range tl.loggers {
		l.LogTrace(message)
	}
}

// LogDebug forwards a debug-level message to every logger.
func (tl *TeeLogger) LogDebug(message string) {
	for _, l := range tl.loggers {
		l.LogDebug(message)
	}
}

// LogInfo forwards an info-level message to every logger.
func (tl *TeeLogger) LogInfo(message string) {
	for _, l := range tl.loggers {
		l.LogInfo(message)
	}
}

// LogWarn forwards a warn-level message to every logger.
func (tl *TeeLogger) LogWarn(message string) {
	for _, l := range tl.loggers {
		l.LogWarn(message)
	}
}

// LogError forwards an error-level message to every logger.
func (tl *TeeLogger) LogError(message string) {
	for _, l := range tl.loggers {
		l.LogError(message)
	}
}
