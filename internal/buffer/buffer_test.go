package buffer

import (
	"testing"
	"time"

	"github.com/satellite-ocs/satellite-ocs/internal/model"
)

func reading(p model.Priority) model.SensorReading {
	return model.SensorReading{Priority: p, Timestamp: time.Now()}
}

// TestPriorityEviction mirrors spec §8 scenario 1.
func TestPriorityEviction(t *testing.T) {
	h := New(3)

	h.Push(reading(model.PriorityNormal))
	h.Push(reading(model.PriorityNormal))
	h.Push(reading(model.PriorityImportant))

	if h.Len() != 3 {
		t.Fatalf("expected full buffer, got len=%d", h.Len())
	}

	out := h.Push(reading(model.PriorityCritical))
	if out.Accepted {
		t.Fatal("expected eviction, got Accepted")
	}
	if out.DroppedPriority != model.PriorityNormal {
		t.Fatalf("expected dropped priority=normal, got %s", out.DroppedPriority)
	}

	got := h.PopMany(3)
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	if got[0].Priority != model.PriorityCritical || got[1].Priority != model.PriorityImportant || got[2].Priority != model.PriorityNormal {
		t.Fatalf("unexpected pop order: %+v", got)
	}
}

func TestNeverExceedsCapacity(t *testing.T) {
	h := New(5)
	for i := 0; i < 50; i++ {
		h.Push(reading(model.PriorityNormal))
		if h.Len() > 5 {
			t.Fatalf("buffer exceeded capacity: len=%d", h.Len())
		}
	}
}

func TestHighPriorityPopsFirst(t *testing.T) {
	h := New(10)
	h.Push(reading(model.PriorityNormal))
	h.Push(reading(model.PriorityImportant))
	h.Push(reading(model.PriorityEmergency))
	h.Push(reading(model.PriorityNormal))

	got := h.PopMany(1)
	if len(got) != 1 || got[0].Priority != model.PriorityEmergency {
		t.Fatalf("expected emergency reading first, got %+v", got)
	}
}

func TestFillPct(t *testing.T) {
	h := New(4)
	h.Push(reading(model.PriorityNormal))
	if got := h.FillPct(); got != 25.0 {
		t.Fatalf("expected fill_pct=25, got %v", got)
	}
}
