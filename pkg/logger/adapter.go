package logger

import (
	"go.uber.org/zap"
)

// LoggerAdapter provides a unified interface for both single and multi-logger
type LoggerAdapter struct {
	multiLogger  *MultiLogger
	singleLogger *zap.Logger
	useMulti     bool
}

// NewLoggerAdapter creates a new logger adapter
func NewLoggerAdapter(multiLogger *MultiLogger) *LoggerAdapter {
	return &LoggerAdapter{
		multiLogger: multiLogger,
		useMulti:    true,
	}
}

// NewSingleLoggerAdapter routes every category to one logger. A nil logger
// discards everything.
func NewSingleLoggerAdapter(logger *zap.Logger) *LoggerAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggerAdapter{
		singleLogger: logger,
		useMulti:     false,
	}
}

// Intercept returns the interception logger
func (la *LoggerAdapter) Intercept() *zap.Logger {
	if la.useMulti {
		return la.multiLogger.Intercept()
	}
	return la.singleLogger
}

// Error returns the error logger
func (la *LoggerAdapter) Error() *zap.Logger {
	if la.useMulti {
		return la.multiLogger.Error()
	}
	return la.singleLogger
}

// General returns the general logger
func (la *LoggerAdapter) General() *zap.Logger {
	if la.useMulti {
		return la.multiLogger.General()
	}
	return la.singleLogger
}

// LogIntercept logs an interception event
func (la *LoggerAdapter) LogIntercept(event string, fields ...zap.Field) {
	if la.useMulti {
		la.multiLogger.LogIntercept(event, fields...)
	} else {
		la.singleLogger.Info(event, fields...)
	}
}

// LogError logs an error to both category and error logs
func (la *LoggerAdapter) LogError(category LogCategory, msg string, fields ...zap.Field) {
	if la.useMulti {
		la.multiLogger.LogError(category, msg, fields...)
	} else {
		la.singleLogger.Error(msg, append(fields, zap.String("category", string(category)))...)
	}
}

// LogsDir returns the directory of category files, or "" for a single logger
func (la *LoggerAdapter) LogsDir() string {
	if la.useMulti {
		return la.multiLogger.GetLogsDir()
	}
	return ""
}

// Sync flushes all loggers
func (la *LoggerAdapter) Sync() error {
	if la.useMulti {
		la.multiLogger.General().Sync()
		return la.multiLogger.Sync()
	}
	return la.singleLogger.Sync()
}
