package downlink

import (
	"testing"
	"time"
)

var epoch = time.Unix(0, 0).UTC()

// TestMissedInit mirrors spec §8 scenario 4's first half.
func TestMissedInit(t *testing.T) {
	h := New()
	h.Open(epoch)

	res := h.PreSend(epoch.Add(6 * time.Millisecond))
	if res.Event != EventMissedInit {
		t.Fatalf("expected MissedInit, got %v", res.Event)
	}
	if h.Phase() != PhaseClosed {
		t.Fatalf("expected Closed after MissedInit, got %v", h.Phase())
	}
}

// TestReadyOnTime mirrors spec §8 scenario 4's second half.
func TestReadyOnTime(t *testing.T) {
	h := New()
	opened := epoch.Add(5000 * time.Millisecond)
	h.Open(opened)

	res := h.PreSend(opened.Add(2 * time.Millisecond))
	if res.Event != EventReady {
		t.Fatalf("expected Ready, got %v", res.Event)
	}
	if h.Phase() != PhaseReady {
		t.Fatalf("expected Ready phase, got %v", h.Phase())
	}
}

func TestClosedNeverMutates(t *testing.T) {
	h := New()
	res := h.PreSend(epoch)
	if res.Event != EventNotInWindow {
		t.Fatalf("expected NotInWindow, got %v", res.Event)
	}
	if h.Phase() != PhaseClosed {
		t.Fatalf("Closed must remain Closed, got %v", h.Phase())
	}
}

func TestSetDegradedIdempotentAndScopedToReady(t *testing.T) {
	h := New()
	// No-op while Closed.
	h.SetDegraded(true)
	h.SetDegraded(true)
	if h.Phase() != PhaseClosed {
		t.Fatalf("SetDegraded must not change phase")
	}

	h.Open(epoch)
	h.PreSend(epoch.Add(time.Millisecond)) // -> Ready
	h.SetDegraded(true)
	h.SetDegraded(true)
	res := h.PreSend(epoch.Add(2 * time.Millisecond))
	if res.Event != EventReadyDegraded {
		t.Fatalf("expected ReadyDegraded, got %v", res.Event)
	}
}
