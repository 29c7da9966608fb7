// Package scheduler implements the rate-monotonic scheduler of spec §4.1: it
// drives a fixed set of periodic tasks, accepts a sporadic high-priority
// thermal-control job, simulates cooperative execution in small slices, and
// reports per-job outcomes and periodic CPU-utilization windows.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/satellite-ocs/satellite-ocs/internal/csvlog"
	"github.com/satellite-ocs/satellite-ocs/internal/ledger"
	"github.com/satellite-ocs/satellite-ocs/internal/observability"
)

// sliceMs is the cooperative execution quantum.
const sliceMs = 0.5

// thermalTaskIdx is the sentinel task index identifying the sporadic
// thermal_control job, which always outranks the periodic task set.
const thermalTaskIdx = -1

// rtTask is a periodic task's static parameters plus release bookkeeping.
type rtTask struct {
	name        string
	period      time.Duration
	deadline    time.Duration
	wcetMs      float64
	rmPriority  uint8 // lower = higher priority
	nextRelease time.Time
	nextDeadline time.Time
	seq         uint64
}

// job is one released instance of a task (or the thermal sentinel).
type job struct {
	taskIdx     int
	release     time.Time
	deadline    time.Time
	seq         uint64
	remainingMs float64
	preemptions int
}

// Scheduler owns the task table, ready queue, and preemption channel.
type Scheduler struct {
	tasks []*rtTask
	ready []*job

	preempt chan struct{}

	csv     *csvlog.Log
	ledger  *ledger.AsyncWriter
	logger  *zap.Logger
	metrics *observability.Metrics

	winStart    time.Time
	activeMsAcc float64
}

// New builds a Scheduler with the fixed task set of spec §4.1. log,
// ledgerWriter, and metrics may be nil.
func New(log *csvlog.Log, ledgerWriter *ledger.AsyncWriter, logger *zap.Logger, metrics *observability.Metrics) *Scheduler {
	now := time.Now()
	return &Scheduler{
		tasks: []*rtTask{
			newTask("antenna_alignment", 50*time.Millisecond, 3.0, 1, now),
			newTask("data_compression", 100*time.Millisecond, 6.0, 2, now),
			newTask("health_monitor", 1000*time.Millisecond, 2.0, 3, now),
		},
		preempt: make(chan struct{}, 16),
		csv:     log,
		ledger:  ledgerWriter,
		logger:  logger,
		metrics: metrics,

		winStart: now,
	}
}

func newTask(name string, period time.Duration, wcetMs float64, prio uint8, now time.Time) *rtTask {
	return &rtTask{
		name: name, period: period, deadline: period, wcetMs: wcetMs, rmPriority: prio,
		nextRelease: now.Add(period), nextDeadline: now.Add(period),
	}
}

// PreemptThermal signals a sporadic thermal_control job should be injected at
// the next scheduling opportunity. Best-effort: a full channel drops the
// signal, acceptable per spec §4.1 (the next tick will re-attempt).
func (s *Scheduler) PreemptThermal() {
	select {
	case s.preempt <- struct{}{}:
	default:
	}
}

// Run executes the scheduler loop until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		now := time.Now()
		s.releaseDue(now)

		select {
		case <-s.preempt:
			s.spawnThermalJob(time.Now())
		default:
		}

		if len(s.ready) == 0 {
			s.maybeEmitCPU(time.Now())

			sleepUntil := s.earliestRelease()
			timer := time.NewTimer(time.Until(sleepUntil))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			case <-s.preempt:
				timer.Stop()
				s.spawnThermalJob(time.Now())
			}
			continue
		}

		s.runOne(ctx)
	}
}

// releaseDue instantiates a Job for every task whose next_release has
// arrived, then re-sorts the ready queue. Strict periodic release: no
// jitter absorption — next_release/next_deadline advance by a fixed period
// from their previous value, never from now.
func (s *Scheduler) releaseDue(now time.Time) {
	for idx, t := range s.tasks {
		if now.Before(t.nextRelease) {
			continue
		}
		t.seq++
		s.ready = append(s.ready, &job{
			taskIdx: idx, release: t.nextRelease, deadline: t.nextDeadline,
			seq: t.seq, remainingMs: t.wcetMs,
		})
		t.nextRelease = t.nextRelease.Add(t.period)
		t.nextDeadline = t.nextDeadline.Add(t.deadline)
	}
	s.sortReady()
}

// spawnThermalJob injects the sporadic sentinel job and re-sorts.
func (s *Scheduler) spawnThermalJob(now time.Time) {
	s.ready = append(s.ready, &job{
		taskIdx: thermalTaskIdx, release: now, deadline: now.Add(20 * time.Millisecond),
		remainingMs: 2.0,
	})
	s.logger.Info("thermal_control job injected (preemption)")
	s.sortReady()
}

// sortReady applies the comparator of spec §4.1: sentinel first, then
// ascending rm_priority, then ascending deadline.
func (s *Scheduler) sortReady() {
	less := func(a, b *job) bool {
		if (a.taskIdx == thermalTaskIdx) != (b.taskIdx == thermalTaskIdx) {
			return a.taskIdx == thermalTaskIdx
		}
		pa, pb := s.rmPriorityOf(a), s.rmPriorityOf(b)
		if pa != pb {
			return pa < pb
		}
		return a.deadline.Before(b.deadline)
	}
	// insertion sort: the ready queue is short (single digits) and this
	// keeps behavior identical to repeated re-sorts after each mutation.
	for i := 1; i < len(s.ready); i++ {
		for j := i; j > 0 && less(s.ready[j], s.ready[j-1]); j-- {
			s.ready[j], s.ready[j-1] = s.ready[j-1], s.ready[j]
		}
	}
}

func (s *Scheduler) rmPriorityOf(j *job) uint8 {
	if j.taskIdx == thermalTaskIdx {
		return 0
	}
	return s.tasks[j.taskIdx].rmPriority
}

func (s *Scheduler) earliestRelease() time.Time {
	earliest := s.tasks[0].nextRelease
	for _, t := range s.tasks[1:] {
		if t.nextRelease.Before(earliest) {
			earliest = t.nextRelease
		}
	}
	return earliest
}

// runOne executes the head of the ready queue cooperatively in sliceMs
// quanta, checking for new releases and preemption roughly every 1ms of
// simulated execution, then logs the per-job outcome.
func (s *Scheduler) runOne(ctx context.Context) {
	cur := s.ready[0]
	s.ready = s.ready[1:]
	isThermal := cur.taskIdx == thermalTaskIdx

	taskName := "thermal_control"
	deadlineMs := 20.0
	if !isThermal {
		t := s.tasks[cur.taskIdx]
		taskName = t.name
		deadlineMs = float64(t.deadline / time.Millisecond)
	}

	actualStart := time.Now()
	startDelayMs := msSince(cur.release, actualStart)

	var ranMs float64
	for cur.remainingMs > 0 {
		if ctx.Err() != nil {
			return
		}
		slice := cur.remainingMs
		if slice > sliceMs {
			slice = sliceMs
		}
		time.Sleep(time.Duration(slice * float64(time.Millisecond)))
		cur.remainingMs -= slice
		ranMs += slice
		s.activeMsAcc += slice

		// check roughly every 1ms of simulated work
		if mod1(ranMs) < sliceMs {
			now := time.Now()
			s.releaseDue(now)

			select {
			case <-s.preempt:
				s.spawnThermalJob(now)
			default:
			}

			if len(s.ready) > 0 {
				next := s.ready[0]
				var higherPrio bool
				switch {
				case next.taskIdx == thermalTaskIdx:
					higherPrio = true
				case isThermal:
					higherPrio = false
				default:
					higherPrio = s.tasks[next.taskIdx].rmPriority < s.tasks[cur.taskIdx].rmPriority
				}
				if higherPrio {
					cur.preemptions++
					s.ready = append(s.ready, cur)
					s.sortReady()
					cur = s.ready[0]
					s.ready = s.ready[1:]
					isThermal = cur.taskIdx == thermalTaskIdx
					if isThermal {
						taskName, deadlineMs = "thermal_control", 20.0
					} else {
						t := s.tasks[cur.taskIdx]
						taskName, deadlineMs = t.name, float64(t.deadline/time.Millisecond)
					}
					actualStart = time.Now()
					startDelayMs = msSince(cur.release, actualStart)
				}
			}
		}
	}

	finish := time.Now()
	completionDelayMs := 0.0
	if finish.After(cur.deadline) {
		completionDelayMs = msSince(cur.deadline, finish)
	}

	if s.csv != nil {
		s.csv.SchedEvent(finish, taskName, cur.seq, startDelayMs, completionDelayMs, ranMs, cur.preemptions, deadlineMs)
	}
	if s.metrics != nil {
		s.metrics.JobsCompletedTotal.WithLabelValues(taskName).Inc()
	}

	if completionDelayMs > 0 {
		s.logger.Warn("deadline violation",
			zap.String("task", taskName), zap.Uint64("seq", cur.seq),
			zap.Float64("start_delay_ms", startDelayMs), zap.Float64("completion_delay_ms", completionDelayMs))
		if s.ledger != nil {
			s.ledger.Submit(ledger.Entry{
				Kind:    ledger.EventDeadlineViolation,
				Subject: taskName,
				Detail:  "completion_delay_ms exceeded deadline",
			})
		}
		if s.metrics != nil {
			s.metrics.DeadlineViolationsTotal.WithLabelValues(taskName).Inc()
		}
	}

	s.maybeEmitCPU(finish)
}

// maybeEmitCPU logs a CPU-utilization window roughly once per second and
// resets the accumulator, per spec §4.1.
func (s *Scheduler) maybeEmitCPU(now time.Time) {
	win := now.Sub(s.winStart)
	if win < time.Second {
		return
	}
	windowMs := float64(win) / float64(time.Millisecond)
	activeMs := s.activeMsAcc
	if s.csv != nil {
		s.csv.CPUWindow(now, windowMs, activeMs)
	}
	if s.metrics != nil && windowMs > 0 {
		s.metrics.CPUActivePercent.Set(activeMs / windowMs * 100)
	}
	s.winStart = now
	s.activeMsAcc = 0
}

func msSince(from, to time.Time) float64 {
	d := to.Sub(from)
	if d < 0 {
		d = 0
	}
	return float64(d) / float64(time.Millisecond)
}

// mod1 returns ranMs modulo 1.0, matching the original's "check roughly
// every 1ms of work" cadence without requiring an exact multiple.
func mod1(ranMs float64) float64 {
	whole := float64(int64(ranMs))
	return ranMs - whole
}
