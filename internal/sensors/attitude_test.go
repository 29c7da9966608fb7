package sensors

import (
	"math"
	"testing"
	"time"

	"github.com/satellite-ocs/satellite-ocs/internal/faultbus"
)

func TestAttitudeSawtoothCenteredOnZero(t *testing.T) {
	a := NewAttitude()
	r, ok := a.Sample(0, 0, 0, time.Now())
	if !ok {
		t.Fatalf("expected nominal sample to be sent")
	}
	if r.Value1 != -3.0 || r.Value2 != -3.0 || r.Value3 != -3.0 {
		t.Fatalf("expected roll/pitch/yaw=-3.0 at seq=0, got %v %v %v", r.Value1, r.Value2, r.Value3)
	}
}

func TestAttitudeErrorDegMatchesEuclideanNorm(t *testing.T) {
	a := NewAttitude()
	r, _ := a.Sample(30, 0, 0, time.Now())
	want := math.Sqrt(r.Value1*r.Value1 + r.Value2*r.Value2 + r.Value3*r.Value3)
	if math.Abs(r.Value4-want) > 1e-9 {
		t.Fatalf("expected value4 (error_deg) to equal euclidean norm, got %v want %v", r.Value4, want)
	}
}

func TestAttitudePauseSkipsSendButNotAccounting(t *testing.T) {
	a := NewAttitude()
	now := time.Now()
	ack := a.HandleFault(faultbus.FaultEvent{Kind: faultbus.EventAttitudePause, FaultID: "f1", ForMs: 100})
	if ack != nil {
		t.Fatalf("expected no ack on fault onset")
	}

	_, ok := a.Sample(5, 0, 0, now)
	if ok {
		t.Fatalf("expected paused sample to be skipped (ok=false)")
	}

	ack = a.HandleFault(faultbus.FaultEvent{Kind: faultbus.EventRecover, FaultID: "f1"})
	if ack == nil || ack.FaultID != "f1" || ack.Component != "attitude" {
		t.Fatalf("expected matching recover to produce an ack, got %+v", ack)
	}

	_, ok = a.Sample(6, 0, 0, now)
	if !ok {
		t.Fatalf("expected sample to resume after recovery")
	}
}

func TestAttitudeIgnoresUnrelatedRecover(t *testing.T) {
	a := NewAttitude()
	a.HandleFault(faultbus.FaultEvent{Kind: faultbus.EventAttitudePause, FaultID: "f1", ForMs: 100})
	ack := a.HandleFault(faultbus.FaultEvent{Kind: faultbus.EventRecover, FaultID: "other"})
	if ack != nil {
		t.Fatalf("expected mismatched fault_id to be ignored")
	}
}
