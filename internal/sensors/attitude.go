package sensors

import (
	"math"
	"time"

	"github.com/satellite-ocs/satellite-ocs/internal/faultbus"
	"github.com/satellite-ocs/satellite-ocs/internal/model"
)

// Attitude implements Producer for the IMU attitude sensor.
type Attitude struct {
	SensorID   int
	SensorName string

	activeFaultID string
	pauseUntil    time.Time
	paused        bool
}

// NewAttitude builds the attitude sensor producer (sensor_id=3, "IMU").
func NewAttitude() *Attitude {
	return &Attitude{SensorID: 3, SensorName: "IMU"}
}

func (a *Attitude) Component() string { return "attitude" }

func (a *Attitude) HandleFault(ev faultbus.FaultEvent) *faultbus.FaultAck {
	switch ev.Kind {
	case faultbus.EventAttitudePause:
		a.activeFaultID = ev.FaultID
		a.paused = true
		a.pauseUntil = time.Now().Add(time.Duration(ev.ForMs) * time.Millisecond)
	case faultbus.EventRecover:
		if ev.FaultID == a.activeFaultID && a.activeFaultID != "" {
			a.activeFaultID = ""
			a.paused = false
			return &faultbus.FaultAck{FaultID: ev.FaultID, Component: a.Component()}
		}
	case faultbus.EventAbort:
		a.activeFaultID = ""
		a.paused = false
	}
	return nil
}

// Sample produces sawtooth-wrapped Euler angles centered on zero. While a
// pause fault is active, the cycle is skipped (ok=false) but seq/timing
// accounting in the shared Loop still advances.
func (a *Attitude) Sample(seq uint64, jitterMs, driftMs float64, now time.Time) (model.SensorReading, bool) {
	if a.paused && now.Before(a.pauseUntil) {
		return model.SensorReading{}, false
	}

	roll := math.Mod(float64(seq)*0.10, 6.0) - 3.0
	pitch := math.Mod(float64(seq)*0.07, 6.0) - 3.0
	yaw := math.Mod(float64(seq)*0.05, 6.0) - 3.0
	errDeg := math.Sqrt(roll*roll + pitch*pitch + yaw*yaw)

	return model.NewAttitudeReading(a.SensorID, a.SensorName, seq, roll, pitch, yaw, errDeg, jitterMs, driftMs, now), true
}
