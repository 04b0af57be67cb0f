package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigureIgnoresZeroValues(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: time.Second})
	got := Current()
	if got.Short != time.Second {
		t.Errorf("Short: got %v, want 1s", got.Short)
	}
	if got.Ping != DefaultPing || got.Medium != DefaultMedium || got.Long != DefaultLong {
		t.Errorf("unset values changed: %+v", got)
	}

	Reset()
	if Short() != DefaultShort {
		t.Errorf("Reset: Short %v", Short())
	}
}

func TestWithTimeout_LogsOnDeadline(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, log, "slow op")
	<-ctx.Done()
	cancel()

	if logs.Len() != 1 {
		t.Fatalf("expected 1 warning, got %d", logs.Len())
	}
	if op := logs.All()[0].ContextMap()["operation"]; op != "slow op" {
		t.Errorf("operation field: got %v", op)
	}

	_, cancel = WithTimeout(context.Background(), time.Hour, log, "fast op")
	cancel()
	if logs.Len() != 1 {
		t.Errorf("cancel before deadline must not log, got %d entries", logs.Len())
	}
}
