package batcher

import (
	"testing"
	"time"

	"github.com/satellite-ocs/satellite-ocs/internal/buffer"
	"github.com/satellite-ocs/satellite-ocs/internal/model"
)

func TestIngressPushNonBlocking(t *testing.T) {
	buf := buffer.New(10)
	ing := NewIngress(buf, nil, nil)
	r := model.NewThermalReading(1, "CPU", 0, 72.0, 0, 0, time.Now())
	if !ing.Push(r) {
		t.Fatalf("expected push to succeed on an empty channel")
	}
}

func TestIngressDropsWhenFull(t *testing.T) {
	buf := buffer.New(10)
	ing := NewIngress(buf, nil, nil)
	ok := true
	for i := 0; i < ingressCapacity+1; i++ {
		r := model.NewThermalReading(1, "CPU", uint64(i), 72.0, 0, 0, time.Now())
		ok = ing.Push(r)
	}
	if ok {
		t.Fatalf("expected the channel to be exhausted and the last push to be dropped")
	}
}

func TestEmergencyMailboxPushNonBlocking(t *testing.T) {
	m := &EmergencyMailbox{ch: make(chan model.EmergencyData, emergencyCapacity)}
	e := model.EmergencyData{AlertID: "a1", Severity: model.SeverityHigh, AlertType: "thermal"}
	if !m.Push(e) {
		t.Fatalf("expected push to succeed on an empty mailbox")
	}
}

func TestEmergencyMailboxDropsWhenFull(t *testing.T) {
	m := &EmergencyMailbox{ch: make(chan model.EmergencyData, emergencyCapacity)}
	ok := true
	for i := 0; i < emergencyCapacity+1; i++ {
		ok = m.Push(model.EmergencyData{AlertID: "a"})
	}
	if ok {
		t.Fatalf("expected the mailbox to be exhausted and the last push to be dropped")
	}
}
