package sensors

import (
	"time"

	"github.com/satellite-ocs/satellite-ocs/internal/faultbus"
	"github.com/satellite-ocs/satellite-ocs/internal/model"
)

// Power implements Producer for the main-bus power sensor.
type Power struct {
	SensorID   int
	SensorName string

	activeFaultID string
	corruptUntil  time.Time
	corrupting    bool
}

// NewPower builds the power sensor producer (sensor_id=2, "Main Bus").
func NewPower() *Power {
	return &Power{SensorID: 2, SensorName: "Main Bus"}
}

func (p *Power) Component() string { return "power" }

func (p *Power) HandleFault(ev faultbus.FaultEvent) *faultbus.FaultAck {
	switch ev.Kind {
	case faultbus.EventPowerCorrupt:
		p.activeFaultID = ev.FaultID
		p.corrupting = true
		p.corruptUntil = time.Now().Add(time.Duration(ev.ForMs) * time.Millisecond)
	case faultbus.EventRecover:
		if ev.FaultID == p.activeFaultID && p.activeFaultID != "" {
			p.activeFaultID = ""
			p.corrupting = false
			return &faultbus.FaultAck{FaultID: ev.FaultID, Component: p.Component()}
		}
	case faultbus.EventAbort:
		p.activeFaultID = ""
		p.corrupting = false
	}
	return nil
}

func (p *Power) Sample(seq uint64, jitterMs, driftMs float64, now time.Time) (model.SensorReading, bool) {
	battPct := 95.0 - float64(seq)*0.05
	voltage := 12.3
	current := 2.1

	if p.corrupting && now.Before(p.corruptUntil) {
		battPct, voltage, current = -5.0, 0.0, -10.0
	}

	return model.NewPowerReading(p.SensorID, p.SensorName, seq, battPct, voltage, current, jitterMs, driftMs, now), true
}
