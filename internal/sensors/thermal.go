package sensors

import (
	"fmt"
	"time"

	"github.com/satellite-ocs/satellite-ocs/internal/faultbus"
	"github.com/satellite-ocs/satellite-ocs/internal/model"
)

// ThermalMissAlarmThreshold is the consecutive-miss count that must be
// exceeded (i.e. the 4th consecutive miss) to trigger the emergency alert,
// per spec §4.4.
const ThermalMissAlarmThreshold = 3

// Thermal implements Producer for the CPU thermal sensor.
type Thermal struct {
	SensorID   int
	SensorName string

	Emergency EmergencySink

	// Preempt, if set, is invoked whenever a sample crosses into
	// critical/emergency territory, signalling the scheduler to run the
	// sporadic thermal_control job.
	Preempt func()

	activeFaultID string
	extraMs       float64
	faultUntil    time.Time

	consecutiveMisses int
}

// NewThermal builds the thermal sensor producer (sensor_id=1, "CPU" per
// the original implementation).
func NewThermal(emergency EmergencySink) *Thermal {
	return &Thermal{SensorID: 1, SensorName: "CPU", Emergency: emergency}
}

func (t *Thermal) Component() string { return "thermal" }

func (t *Thermal) HandleFault(ev faultbus.FaultEvent) *faultbus.FaultAck {
	switch ev.Kind {
	case faultbus.EventThermalDelay:
		t.activeFaultID = ev.FaultID
		t.extraMs = ev.ExtraMs
		t.faultUntil = time.Now().Add(time.Duration(ev.ForMs) * time.Millisecond)
	case faultbus.EventRecover:
		if ev.FaultID == t.activeFaultID && t.activeFaultID != "" {
			t.activeFaultID = ""
			t.extraMs = 0
			return &faultbus.FaultAck{FaultID: ev.FaultID, Component: t.Component()}
		}
	case faultbus.EventAbort:
		t.activeFaultID = ""
		t.extraMs = 0
	}
	return nil
}

// Sample applies the fault-induced delay (if active) and computes the
// simulated temperature. The consecutive-miss alarm is not touched here —
// it depends on the send outcome too, and is decided once per cycle by
// RecordCycleResult after the loop has pushed the reading.
func (t *Thermal) Sample(seq uint64, jitterMs, driftMs float64, now time.Time) (model.SensorReading, bool) {
	if t.activeFaultID != "" && t.extraMs > 0 && now.Before(t.faultUntil) {
		time.Sleep(time.Duration(t.extraMs) * time.Millisecond)
	}

	tempC := 60.0 + float64(seq%40)*0.2
	reading := model.NewThermalReading(t.SensorID, t.SensorName, seq, tempC, jitterMs, driftMs, now)

	if t.Preempt != nil && (reading.Priority == model.PriorityEmergency || reading.Priority == model.PriorityCritical) {
		t.Preempt()
	}

	return reading, true
}

// RecordCycleResult is the single per-cycle miss decision, matching the
// original's "if send failed OR jitter exceeded 1ms" OR-check: a miss is
// either a timing miss (jitterMs > 1ms) or a failed send, and the two
// signals are combined into one increment-or-reset rather than applied
// independently.
func (t *Thermal) RecordCycleResult(jitterMs float64, sendOK bool, now time.Time) {
	if !sendOK || jitterMs > 1.0 {
		t.recordMiss(now)
	} else {
		t.consecutiveMisses = 0
	}
}

func (t *Thermal) recordMiss(now time.Time) {
	t.consecutiveMisses++
	if t.consecutiveMisses <= ThermalMissAlarmThreshold {
		return
	}
	t.consecutiveMisses = 0
	if t.Emergency == nil {
		return
	}
	t.Emergency.Push(model.EmergencyData{
		AlertID:               fmt.Sprintf("thermal-miss-%d", now.UnixMilli()),
		Severity:              model.SeverityHigh,
		AlertType:             "thermal",
		Description:           "thermal sensor exceeded consecutive jitter miss threshold",
		AutoRecoveryAttempted: false,
		Timestamp:             now,
	})
}
