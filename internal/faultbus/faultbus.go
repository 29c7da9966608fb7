// Package faultbus implements the fault injection/recovery protocol of
// spec §4.4: a broadcast bus of FaultEvent published by the injector and
// observed by every sensor, and a reverse mailbox of FaultAck that funnels
// recovery acknowledgements back to the injector.
package faultbus

import (
	"sync"
)

// Target identifies which sensor subsystem a fault applies to.
type Target string

const (
	TargetThermal  Target = "thermal"
	TargetPower    Target = "power"
	TargetAttitude Target = "attitude"
)

// Kind identifies the fault behavior.
type Kind string

const (
	KindDelay   Kind = "delay"
	KindCorrupt Kind = "corrupt"
	KindPause   Kind = "pause"
)

// EventKind tags which variant of FaultEvent is populated.
type EventKind uint8

const (
	EventThermalDelay EventKind = iota
	EventPowerCorrupt
	EventAttitudePause
	EventRecover
	EventAbort
)

// FaultEvent is published on the bus. Only the fields relevant to Kind are
// meaningful, mirroring the original's enum-of-structs shape as a Go tagged
// struct (no third-party sum-type library appears anywhere in the example
// pack, so a tag field is the idiomatic choice).
type FaultEvent struct {
	Kind      EventKind
	FaultID   string
	ExtraMs   float64 // ThermalDelay
	ForMs     float64 // ThermalDelay / PowerCorrupt / AttitudePause
	Reason    string  // Abort
}

// FaultAck is sent back by a sensor once it has observed and cleared a
// matching Recover event.
type FaultAck struct {
	FaultID     string
	Component   string
	RecoveredAt int64 // unix nanos
}

const busCapacity = 64
const ackCapacity = 64

// Bus is the process-wide fault event broadcaster plus ack mailbox. It is a
// channel-based fan-out (a mutex guards only the subscriber list): each
// subscriber gets its own buffered channel, and a slow subscriber may miss
// events rather than stall the
// publisher — acceptable per spec §5, since the injector treats a missing
// ack as a timeout regardless of cause.
type Bus struct {
	mu   sync.Mutex
	subs []chan FaultEvent
	ack  chan FaultAck
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{ack: make(chan FaultAck, ackCapacity)}
}

// Subscribe registers a new subscriber and returns its receive channel.
// Intended to be called once per sensor at startup.
func (b *Bus) Subscribe() <-chan FaultEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan FaultEvent, busCapacity)
	b.subs = append(b.subs, ch)
	return ch
}

// Publish fans FaultEvent out to every subscriber, non-blocking: a
// subscriber whose channel is full simply misses this event.
func (b *Bus) Publish(ev FaultEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// AckRecovered is called by a sensor once it has cleared a matching fault.
func (b *Bus) AckRecovered(ack FaultAck) {
	select {
	case b.ack <- ack:
	default:
	}
}

// Acks returns the channel the injector drains for FaultAck messages.
func (b *Bus) Acks() <-chan FaultAck {
	return b.ack
}
