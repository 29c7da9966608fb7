// Package buffer implements the bounded, priority-aware telemetry buffer
// described in spec §4.2: three FIFO buckets (hi/im/lo) with lowest-bucket-
// first eviction on overflow, and priority-ordered draining.
package buffer

import (
	"sync"

	"github.com/satellite-ocs/satellite-ocs/internal/model"
)

// InsertOutcome reports what push did.
type InsertOutcome struct {
	Accepted        bool
	DroppedPriority model.Priority
	DroppedCount    int
}

// Handle is a mutex-guarded, shared priority buffer. It is safe for
// concurrent use by any number of producers (sensors) and one consumer
// (the batcher); this breaks the cyclic ownership between ingest and drain
// that a single-owner design would create (see SPEC_FULL.md §9).
type Handle struct {
	mu       sync.Mutex
	capacity int
	hi       []model.SensorReading
	im       []model.SensorReading
	lo       []model.SensorReading
}

// New creates a Handle with the given fixed capacity.
func New(capacity int) *Handle {
	return &Handle{capacity: capacity}
}

func bucketFor(p model.Priority) int {
	switch p {
	case model.PriorityEmergency, model.PriorityCritical:
		return 0 // hi
	case model.PriorityImportant:
		return 1 // im
	default:
		return 2 // lo
	}
}

// Push appends r to the bucket matching its priority. If the buffer is at
// capacity, it first evicts one element from the lowest non-empty bucket,
// trying lo, then im, then hi, in that order — so emergency/critical
// traffic can evict normal and important, and only a sustained flood of
// critical traffic evicts critical itself.
func (h *Handle) Push(r model.SensorReading) InsertOutcome {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := len(h.hi) + len(h.im) + len(h.lo)
	var out InsertOutcome
	if total >= h.capacity {
		switch {
		case len(h.lo) > 0:
			out = InsertOutcome{DroppedPriority: model.PriorityNormal, DroppedCount: 1}
			h.lo = h.lo[1:]
		case len(h.im) > 0:
			out = InsertOutcome{DroppedPriority: model.PriorityImportant, DroppedCount: 1}
			h.im = h.im[1:]
		case len(h.hi) > 0:
			out = InsertOutcome{DroppedPriority: model.PriorityCritical, DroppedCount: 1}
			h.hi = h.hi[1:]
		}
	} else {
		out.Accepted = true
	}

	switch bucketFor(r.Priority) {
	case 0:
		h.hi = append(h.hi, r)
	case 1:
		h.im = append(h.im, r)
	default:
		h.lo = append(h.lo, r)
	}
	return out
}

// PopMany drains up to n readings, taking from hi, then im, then lo, and
// preserving FIFO order within each bucket.
func (h *Handle) PopMany(n int) []model.SensorReading {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]model.SensorReading, 0, n)
	take := func(bucket *[]model.SensorReading) {
		for len(out) < n && len(*bucket) > 0 {
			out = append(out, (*bucket)[0])
			*bucket = (*bucket)[1:]
		}
	}
	take(&h.hi)
	take(&h.im)
	take(&h.lo)
	return out
}

// FillPct returns 100*total/capacity.
func (h *Handle) FillPct() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fillPctLocked()
}

func (h *Handle) fillPctLocked() float64 {
	if h.capacity == 0 {
		return 0
	}
	total := len(h.hi) + len(h.im) + len(h.lo)
	return 100 * float64(total) / float64(h.capacity)
}

// Len returns the current total occupancy across all buckets.
func (h *Handle) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hi) + len(h.im) + len(h.lo)
}
