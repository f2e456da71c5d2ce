package future

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLogger_NilRestoresNop(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	SetLogger(nil)

	Logger().Error("dropped")
	if logs.Len() != 0 {
		t.Errorf("expected no entries after reset, got %d", logs.Len())
	}
	if Logger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected no-op logger after reset")
	}
}
