package clone

import (
	"io"
	"log/slog"
	"sync"

	"github.com/rangelog/rangelog/internal/errors"
	"github.com/rangelog/rangelog/internal/logging"
)

// Package-level logger for clone operations
var (
	cloneLogger   *slog.Logger
	cloneLevelVar = new(slog.LevelVar) // Dynamic level control
	closeFunc     func() error
	loggerOnce    sync.Once
	loggerMu      sync.RWMutex

	defaultLogPath = "logs/clone.log"
)

// InitializeLogger initializes the clone logger with the specified log file
// path. Safe to call multiple times, initialization happens only once.
func InitializeLogger(logFilePath string) error {
	var initErr error

	loggerOnce.Do(func() {
		if logFilePath == "" {
			logFilePath = defaultLogPath
		}

		cloneLevelVar.Set(slog.LevelInfo)

		var err error
		cloneLogger, closeFunc, err = logging.NewFileLogger(logFilePath, "clone", cloneLevelVar)
		if err != nil {
			// Fall back to a discard logger instead of failing
			cloneLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
			closeFunc = func() error { return nil }

			initErr = errors.Newf("clone: failed to initialize file logger: %v", err).
				Component("clone").
				Category(errors.CategoryFileIO).
				Context("log_file", logFilePath).
				Build()
		}
	})

	return initErr
}

// getLogger returns the logger, initializing it with the default path if needed.
func getLogger() *slog.Logger {
	loggerMu.RLock()
	if cloneLogger != nil {
		defer loggerMu.RUnlock()
		return cloneLogger
	}
	loggerMu.RUnlock()

	_ = InitializeLogger(defaultLogPath)

	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return cloneLogger
}

// CloseLogger closes the clone log file.
func CloseLogger() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if closeFunc != nil {
		err := closeFunc()
		closeFunc = nil
		return err
	}
	return nil
}

// SetLogLevel adjusts the clone log level at runtime.
func SetLogLevel(level slog.Level) {
	cloneLevelVar.Set(level)
}
