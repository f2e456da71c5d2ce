package guest

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/wippyai/fdb-wasm/future"
)

var override atomic.Pointer[zap.Logger]

// Logger returns the logger used for guest calls. Unless SetLogger installed
// one, this is the future package logger named "guest".
func Logger() *zap.Logger {
	if l := override.Load(); l != nil {
		return l
	}
	return future.Logger().Named("guest")
}

// SetLogger routes guest logs to l. Passing nil goes back to following the
// future package logger.
func SetLogger(l *zap.Logger) {
	override.Store(l)
}
