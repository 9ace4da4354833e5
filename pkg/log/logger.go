package log

import "go.uber.org/zap"

type Logger struct {
	base *zap.SugaredLogger
}

func New(log *zap.Logger) *Logger {
	return &Logger{
		base: log.Sugar(),
	}
}

func NewNop() *Logger {
	return New(zap.NewNop())
}

func (logger *Logger) With(args ...interface{}) *Logger {
	return &Logger{base: logger.base.With(args...)}
}

func (logger *Logger) Debugw(msg string, pairs ...interface{}) {
	logger.base.Debugw(msg, pairs...)
}

func (logger *Logger) Info(args ...interface{}) {
	logger.base.Info(args...)
}

func (logger *Logger) Infow(msg string, pairs ...interface{}) {
	logger.base.Infow(msg, pairs...)
}

func (logger *Logger) Error(args ...interface{}) {
	logger.base.Error(args...)
}

func (logger *Logger) Errorw(msg string, pairs ...interface{}) {
	logger.base.Errorw(msg, pairs...)
}

// Sync flushes any buffered log entries.
func (logger *Logger) Sync() error {
	return logger.base.Sync()
}
