package scheduler

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

// TestSortOrdering mirrors spec §8 scenario 2: three jobs with
// (rm_priority, deadline_offset_ms) in {(2,100), (1,100), (1,50)} sort to
// [(1,50), (1,100), (2,100)].
func TestSortOrdering(t *testing.T) {
	s := New(nil, nil, zap.NewNop(), nil)
	// two synthetic periodic tasks carrying rm_priority 1 and 2.
	s.tasks = []*rtTask{
		{name: "p1", rmPriority: 1},
		{name: "p2", rmPriority: 2},
	}
	base := time.Now()
	s.ready = []*job{
		{taskIdx: 1, deadline: base.Add(100 * time.Millisecond)}, // (2,100)
		{taskIdx: 0, deadline: base.Add(100 * time.Millisecond)}, // (1,100)
		{taskIdx: 0, deadline: base.Add(50 * time.Millisecond)},  // (1,50)
	}
	s.sortReady()

	if len(s.ready) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(s.ready))
	}
	want := []struct {
		idx int
		dl  time.Duration
	}{{0, 50 * time.Millisecond}, {0, 100 * time.Millisecond}, {1, 100 * time.Millisecond}}
	for i, w := range want {
		got := s.ready[i]
		if got.taskIdx != w.idx || !got.deadline.Equal(base.Add(w.dl)) {
			t.Fatalf("position %d: expected taskIdx=%d deadline=%v, got taskIdx=%d deadline=%v",
				i, w.idx, base.Add(w.dl), got.taskIdx, got.deadline)
		}
	}
}

// TestThermalSentinelAlwaysFirst ensures the sentinel beats every periodic
// task regardless of rm_priority/deadline.
func TestThermalSentinelAlwaysFirst(t *testing.T) {
	s := New(nil, nil, zap.NewNop(), nil)
	s.tasks = []*rtTask{{name: "p1", rmPriority: 1}}
	now := time.Now()
	s.ready = []*job{
		{taskIdx: 0, deadline: now},
		{taskIdx: thermalTaskIdx, deadline: now.Add(20 * time.Millisecond)},
	}
	s.sortReady()
	if s.ready[0].taskIdx != thermalTaskIdx {
		t.Fatalf("expected thermal sentinel first, got taskIdx=%d", s.ready[0].taskIdx)
	}
}

// TestLowerPriorityValueDispatchedFirst covers the scheduler law: strictly
// lower rm_priority value dispatches before a higher one when both are
// ready and deadlines don't break the tie the other way.
func TestLowerPriorityValueDispatchedFirst(t *testing.T) {
	s := New(nil, nil, zap.NewNop(), nil)
	s.tasks = []*rtTask{
		{name: "high", rmPriority: 1},
		{name: "low", rmPriority: 3},
	}
	now := time.Now()
	s.ready = []*job{
		{taskIdx: 1, deadline: now},
		{taskIdx: 0, deadline: now},
	}
	s.sortReady()
	if s.ready[0].taskIdx != 0 {
		t.Fatalf("expected task with rm_priority=1 dispatched first, got taskIdx=%d", s.ready[0].taskIdx)
	}
}

func TestReleaseDueAdvancesStrictPeriod(t *testing.T) {
	s := New(nil, nil, zap.NewNop(), nil)
	now := time.Now()
	s.tasks = []*rtTask{{name: "p", period: 50 * time.Millisecond, deadline: 50 * time.Millisecond, wcetMs: 3.0, rmPriority: 1, nextRelease: now, nextDeadline: now}}

	s.releaseDue(now)
	if len(s.ready) != 1 {
		t.Fatalf("expected one job released, got %d", len(s.ready))
	}
	if s.ready[0].seq != 1 {
		t.Fatalf("expected seq=1, got %d", s.ready[0].seq)
	}
	if !s.tasks[0].nextRelease.Equal(now.Add(50 * time.Millisecond)) {
		t.Fatalf("expected next_release to advance by exactly one period from its previous value")
	}
}

func TestMaybeEmitCPUResetsAfterWindow(t *testing.T) {
	s := New(nil, nil, zap.NewNop(), nil)
	s.winStart = time.Now().Add(-2 * time.Second)
	s.activeMsAcc = 123.4
	s.maybeEmitCPU(time.Now())
	if s.activeMsAcc != 0 {
		t.Fatalf("expected active_ms accumulator reset after a window emits, got %v", s.activeMsAcc)
	}
}
