package future

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var logger = atomic.NewPointer(zap.NewNop())

// Logger returns the logger handles report their lifecycle to.
// It is a no-op logger until SetLogger is called.
func Logger() *zap.Logger {
	return logger.Load()
}

// SetLogger replaces the package logger. Handles created earlier pick up
// the new logger on their next event. A nil l restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}
