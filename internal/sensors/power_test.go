package sensors

import (
	"testing"
	"time"

	"github.com/satellite-ocs/satellite-ocs/internal/faultbus"
)

func TestPowerNominal(t *testing.T) {
	p := NewPower()
	r, ok := p.Sample(0, 0, 0, time.Now())
	if !ok {
		t.Fatalf("expected nominal sample to be sent")
	}
	if r.Value1 != 95.0 {
		t.Fatalf("expected batt_pct=95.0 at seq=0, got %v", r.Value1)
	}
	if r.Value2 != 12.3 || r.Value3 != 2.1 {
		t.Fatalf("unexpected nominal voltage/current: %v %v", r.Value2, r.Value3)
	}
}

func TestPowerDecaysWithSequence(t *testing.T) {
	p := NewPower()
	r, _ := p.Sample(10, 0, 0, time.Now())
	want := 95.0 - 10*0.05
	if r.Value1 != want {
		t.Fatalf("expected batt_pct=%v at seq=10, got %v", want, r.Value1)
	}
}

func TestPowerCorruptOverride(t *testing.T) {
	p := NewPower()
	now := time.Now()
	ack := p.HandleFault(faultbus.FaultEvent{Kind: faultbus.EventPowerCorrupt, FaultID: "f1", ForMs: 100})
	if ack != nil {
		t.Fatalf("expected no ack on fault onset")
	}

	r, ok := p.Sample(1, 0, 0, now)
	if !ok {
		t.Fatalf("corrupted sample should still be sent")
	}
	if r.Value1 != -5.0 || r.Value2 != 0.0 || r.Value3 != -10.0 {
		t.Fatalf("expected corrupted override values, got %v %v %v", r.Value1, r.Value2, r.Value3)
	}

	ack = p.HandleFault(faultbus.FaultEvent{Kind: faultbus.EventRecover, FaultID: "f1"})
	if ack == nil || ack.FaultID != "f1" || ack.Component != "power" {
		t.Fatalf("expected matching recover to produce an ack, got %+v", ack)
	}

	r, ok = p.Sample(2, 0, 0, now)
	if !ok || r.Value1 != 95.0-2*0.05 {
		t.Fatalf("expected nominal values to resume after recovery, got %v", r.Value1)
	}
}

func TestPowerIgnoresUnrelatedRecover(t *testing.T) {
	p := NewPower()
	p.HandleFault(faultbus.FaultEvent{Kind: faultbus.EventPowerCorrupt, FaultID: "f1", ForMs: 100})
	ack := p.HandleFault(faultbus.FaultEvent{Kind: faultbus.EventRecover, FaultID: "other"})
	if ack != nil {
		t.Fatalf("expected mismatched fault_id to be ignored")
	}
}
