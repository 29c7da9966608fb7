package faultbus

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

// TestRecoveryWithinBudget mirrors spec §8 scenario 5: a matching ack
// arrives quickly and the recovery is not aborted.
func TestRecoveryWithinBudget(t *testing.T) {
	bus := New()
	logger := zap.NewNop()
	inj := NewInjector(bus, nil, nil, logger, nil)

	sub := bus.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sub {
			if ev.Kind == EventRecover {
				bus.AckRecovered(FaultAck{FaultID: ev.FaultID, Component: "thermal"})
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Run one injection cycle directly rather than waiting 60s for the
	// ticker.
	inj.injectOnce(ctx)
	<-done
}

func TestRecoveryTimeout(t *testing.T) {
	bus := New()
	logger := zap.NewNop()
	inj := NewInjector(bus, nil, nil, logger, nil)

	// Subscribe but never ack — forces the 500ms timeout path.
	_ = bus.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	inj.injectOnce(ctx)
	if elapsed := time.Since(start); elapsed < RecoveryDeadline {
		t.Fatalf("expected injector to wait at least the recovery deadline, took %v", elapsed)
	}
}
