package sensors

import (
	"testing"
	"time"

	"github.com/satellite-ocs/satellite-ocs/internal/faultbus"
	"github.com/satellite-ocs/satellite-ocs/internal/model"
)

type fakeEmergencySink struct {
	pushed []model.EmergencyData
}

func (f *fakeEmergencySink) Push(e model.EmergencyData) bool {
	f.pushed = append(f.pushed, e)
	return true
}

func TestThermalNominalNeverAlarms(t *testing.T) {
	sink := &fakeEmergencySink{}
	th := NewThermal(sink)
	r, ok := th.Sample(0, 0, 0, time.Now())
	if !ok {
		t.Fatalf("expected nominal sample to be sent")
	}
	if r.Value1 != 60.0 {
		t.Fatalf("expected temp_c=60.0 at seq=0, got %v", r.Value1)
	}
	if len(sink.pushed) != 0 {
		t.Fatalf("expected no emergency alert from a nominal sample, got %d", len(sink.pushed))
	}
}

func TestThermalMissAlarmAfterFourConsecutiveMisses(t *testing.T) {
	sink := &fakeEmergencySink{}
	th := NewThermal(sink)
	now := time.Now()
	for i := 0; i < 4; i++ {
		th.RecordCycleResult(2.0, true, now) // jitter_ms > 1.0 counts as a miss
	}
	if len(sink.pushed) != 1 {
		t.Fatalf("expected exactly one emergency alert after 4 misses, got %d", len(sink.pushed))
	}
	if sink.pushed[0].AlertType != "thermal" || sink.pushed[0].Severity != model.SeverityHigh {
		t.Fatalf("unexpected alert shape: %+v", sink.pushed[0])
	}
}

func TestThermalMissCounterResetsOnCleanSample(t *testing.T) {
	sink := &fakeEmergencySink{}
	th := NewThermal(sink)
	now := time.Now()
	th.RecordCycleResult(2.0, true, now)
	th.RecordCycleResult(2.0, true, now)
	th.RecordCycleResult(0.1, true, now) // clean cycle resets the counter
	th.RecordCycleResult(2.0, true, now)
	th.RecordCycleResult(2.0, true, now)
	if len(sink.pushed) != 0 {
		t.Fatalf("expected no alert, reset should have prevented threshold from being reached")
	}
}

func TestThermalRecordCycleResultCountsDroppedSendsAsMisses(t *testing.T) {
	sink := &fakeEmergencySink{}
	th := NewThermal(sink)
	now := time.Now()
	for i := 0; i < 4; i++ {
		th.RecordCycleResult(0, false, now)
	}
	if len(sink.pushed) != 1 {
		t.Fatalf("expected dropped sends to drive the same miss alarm, got %d alerts", len(sink.pushed))
	}
}

func TestThermalRecordCycleResultORsBothMissConditions(t *testing.T) {
	// Regression: a timing miss (jitter_ms > 1.0) followed by a successful
	// send must still count as one miss per cycle, not be clobbered by the
	// send outcome - the original combines both signals with a single OR
	// check, not two independent updates.
	sink := &fakeEmergencySink{}
	th := NewThermal(sink)
	now := time.Now()
	for i := 0; i < 4; i++ {
		th.RecordCycleResult(2.0, true, now) // jitter miss, but send succeeded
	}
	if len(sink.pushed) != 1 {
		t.Fatalf("expected a timing miss with a successful send to still count as a miss, got %d alerts", len(sink.pushed))
	}
}

func TestThermalDelayFaultSleepsExtraMsPerTick(t *testing.T) {
	th := NewThermal(nil)
	ack := th.HandleFault(faultbus.FaultEvent{Kind: faultbus.EventThermalDelay, FaultID: "f1", ExtraMs: 5, ForMs: 1000})
	if ack != nil {
		t.Fatalf("expected no ack on fault onset")
	}

	start := time.Now()
	th.Sample(0, 0, 0, start)
	elapsed := time.Since(start)
	if elapsed < 5*time.Millisecond {
		t.Fatalf("expected sample to be delayed by extra_ms, elapsed=%v", elapsed)
	}

	ack = th.HandleFault(faultbus.FaultEvent{Kind: faultbus.EventRecover, FaultID: "f1"})
	if ack == nil || ack.FaultID != "f1" || ack.Component != "thermal" {
		t.Fatalf("expected matching recover to produce an ack, got %+v", ack)
	}
}

func TestThermalPreemptHookNotInvokedUnderNominalTemperature(t *testing.T) {
	th := NewThermal(nil)
	called := false
	th.Preempt = func() { called = true }
	th.Sample(0, 0, 0, time.Now())
	if called {
		t.Fatalf("nominal temperature profile never crosses into critical/emergency; preempt should not fire")
	}
}
