// Package downlink implements the visibility-window state machine that
// gates telemetry transmission (spec §4.3). The satellite's downlink is
// only usable during brief, periodically recurring windows; the batcher
// consults PreSend before every transmission attempt.
package downlink

import (
	"sync"
	"time"
)

// Phase is the tag of the current link state.
type Phase uint8

const (
	PhaseClosed Phase = iota
	PhaseOpening
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseClosed:
		return "closed"
	case PhaseOpening:
		return "opening"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Event is the outcome PreSend reports to the batcher.
type Event uint8

const (
	EventNotInWindow Event = iota
	EventMissedInit
	EventReady
	EventReadyPrepLate
	EventReadyDegraded
)

func (e Event) String() string {
	switch e {
	case EventNotInWindow:
		return "not_in_window"
	case EventMissedInit:
		return "missed_init"
	case EventReady:
		return "ready"
	case EventReadyPrepLate:
		return "ready_prep_late"
	case EventReadyDegraded:
		return "ready_degraded"
	default:
		return "unknown"
	}
}

// Timing constants from spec §4.3.
const (
	InitWindow      = 5 * time.Millisecond
	PrepLateThresh  = 30 * time.Millisecond
	OpenDuration    = 800 * time.Millisecond
	VisibilityPeriod = 5 * time.Second
)

// PreSendResult carries the event plus the prep latency, when meaningful,
// for logging.
type PreSendResult struct {
	Event  Event
	PrepMs float64
}

// Handle is the mutex-guarded, process-wide downlink state. Transitions
// only happen via Open, Close, PreSend, and SetDegraded — mirroring the
// reference codebase's mutex-guarded state-struct idiom, generalized here
// from a six-state escalation ladder to this three-phase link model.
type Handle struct {
	mu           sync.Mutex
	phase        Phase
	openedAt     time.Time
	readyAt      time.Time
	initStarted  bool
	degraded     bool
}

// New creates a Handle starting in Closed.
func New() *Handle {
	return &Handle{phase: PhaseClosed}
}

// Open transitions to Opening{opened_at: now, init_started: false}.
func (h *Handle) Open(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.phase = PhaseOpening
	h.openedAt = now
	h.initStarted = false
}

// Close transitions unconditionally to Closed.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.phase = PhaseClosed
}

// SetDegraded mutates only the degraded flag of the Ready phase; it is a
// no-op in Closed or Opening.
func (h *Handle) SetDegraded(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.phase == PhaseReady {
		h.degraded = on
	}
}

// Phase reports the current phase, for logging/metrics only.
func (h *Handle) Phase() Phase {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.phase
}

// PreSend evaluates the transition table in spec §4.3 against now, mutates
// state accordingly, and reports the event the batcher should react to.
func (h *Handle) PreSend(now time.Time) PreSendResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.phase {
	case PhaseClosed:
		return PreSendResult{Event: EventNotInWindow}

	case PhaseOpening:
		sinceOpen := now.Sub(h.openedAt)
		if sinceOpen > InitWindow && !h.initStarted {
			h.phase = PhaseClosed
			return PreSendResult{Event: EventMissedInit}
		}
		h.phase = PhaseReady
		h.readyAt = now
		h.degraded = false
		prepMs := float64(h.readyAt.Sub(h.openedAt)) / float64(time.Millisecond)
		if h.readyAt.Sub(h.openedAt) > PrepLateThresh {
			return PreSendResult{Event: EventReadyPrepLate, PrepMs: prepMs}
		}
		return PreSendResult{Event: EventReady, PrepMs: prepMs}

	case PhaseReady:
		prepMs := float64(h.readyAt.Sub(h.openedAt)) / float64(time.Millisecond)
		if h.readyAt.Sub(h.openedAt) > PrepLateThresh {
			return PreSendResult{Event: EventReadyPrepLate, PrepMs: prepMs}
		}
		if h.degraded {
			return PreSendResult{Event: EventReadyDegraded, PrepMs: prepMs}
		}
		return PreSendResult{Event: EventReady, PrepMs: prepMs}

	default:
		return PreSendResult{Event: EventNotInWindow}
	}
}

// RunVisibilitySimulator is the background visibility-window generator
// (spec §4.3): every VisibilityPeriod, open the window; after OpenDuration,
// close it. Runs until done is closed; callers should launch it in its own
// goroutine.
func (h *Handle) RunVisibilitySimulator(done <-chan struct{}) {
	ticker := time.NewTicker(VisibilityPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			h.Open(now)
			timer := time.NewTimer(OpenDuration)
			select {
			case <-done:
				timer.Stop()
				return
			case <-timer.C:
				h.Close()
			}
		}
	}
}
