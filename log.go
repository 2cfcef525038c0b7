package nativebind

import (
	"sync"

	"github.com/pion/logging"
)

var (
	loggerMu sync.RWMutex
	logger   logging.LeveledLogger = logging.NewDefaultLoggerFactory().NewLogger("nativebind")
)

// SetLogger replaces the package logger. Passing nil restores the default,
// which honours the PION_LOG_* environment variables.
func SetLogger(l logging.LeveledLogger) {
	if l == nil {
		l = logging.NewDefaultLoggerFactory().NewLogger("nativebind")
	}
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

func log() logging.LeveledLogger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}
