// Package model defines the wire-level and in-memory data shapes shared
// across the onboard control software: sensor readings, commands and their
// acknowledgements, emergency alerts, system health, and the logical
// communication packet that wraps all of them for transport.
package model

import "time"

// SensorType identifies which physical subsystem a reading came from.
type SensorType string

const (
	SensorThermal  SensorType = "thermal"
	SensorPower    SensorType = "power"
	SensorAttitude SensorType = "attitude"
)

// Priority orders telemetry for buffering and transmission. Lower-indexed
// values are more urgent; see bucketFor in internal/buffer.
type Priority string

const (
	PriorityEmergency Priority = "emergency"
	PriorityCritical  Priority = "critical"
	PriorityImportant Priority = "important"
	PriorityNormal    Priority = "normal"
)

// Quality reflects how trustworthy a reading's values are.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
	QualityInvalid   Quality = "invalid"
)

// Status is the sensor-reported alarm status that accompanies a reading.
type Status string

const (
	StatusNormal    Status = "normal"
	StatusWarning   Status = "warning"
	StatusEmergency Status = "emergency"
)

// SensorReading is a single telemetry sample. The meaning of Value1..Value4
// is sensor-typed: thermal uses Value1 for temperature; power uses Value1-3
// for battery%, voltage, current; attitude uses Value1-3 for roll/pitch/yaw.
// Readings are value types: once constructed they are never mutated by more
// than one goroutine, and never shared by pointer across the ingest boundary.
type SensorReading struct {
	SensorID             int        `json:"sensor_id"`
	SensorName           string     `json:"sensor_name"`
	SensorType           SensorType `json:"sensor_type"`
	SequenceNumber       uint64     `json:"sequence_number"`
	Value1               float64    `json:"value1"`
	Value2               float64    `json:"value2"`
	Value3               float64    `json:"value3"`
	Value4               float64    `json:"value4"`
	JitterMs             float64    `json:"jitter_ms"`
	DriftMs              float64    `json:"drift_ms"`
	ProcessingLatencyMs  float64    `json:"processing_latency_ms"`
	Priority             Priority   `json:"priority"`
	Quality              Quality    `json:"quality"`
	Status               Status     `json:"status"`
	Timestamp            time.Time  `json:"timestamp"`
}

// Thermal thresholds (degrees C), per spec §3.
const (
	ThermalEmergencyC = 95.0
	ThermalCriticalC  = 85.0
	ThermalWarningC   = 60.0
	ThermalMinValidC  = -50.0
	ThermalMaxValidC  = 150.0
)

// NewThermalReading derives priority/quality/status for a thermal sample.
func NewThermalReading(sensorID int, name string, seq uint64, tempC float64, jitterMs, driftMs float64, ts time.Time) SensorReading {
	r := SensorReading{
		SensorID: sensorID, SensorName: name, SensorType: SensorThermal,
		SequenceNumber: seq, Value1: tempC,
		JitterMs: jitterMs, DriftMs: driftMs, Timestamp: ts,
	}
	switch {
	case tempC >= ThermalEmergencyC:
		r.Priority, r.Status = PriorityEmergency, StatusEmergency
	case tempC >= ThermalCriticalC:
		r.Priority, r.Status = PriorityCritical, StatusEmergency
	case tempC >= ThermalWarningC:
		r.Priority, r.Status = PriorityImportant, StatusWarning
	default:
		r.Priority, r.Status = PriorityImportant, StatusNormal
	}
	if tempC < ThermalMinValidC || tempC > ThermalMaxValidC {
		r.Quality = QualityInvalid
	} else {
		r.Quality = QualityExcellent
	}
	return r
}

// Power thresholds (percent battery), per spec §3.
const (
	PowerCriticalPct = 10.0
	PowerLowPct      = 25.0
)

// NewPowerReading derives priority/quality for a power sample.
// battPct, voltage, current map to Value1, Value2, Value3.
func NewPowerReading(sensorID int, name string, seq uint64, battPct, voltage, current float64, jitterMs, driftMs float64, ts time.Time) SensorReading {
	r := SensorReading{
		SensorID: sensorID, SensorName: name, SensorType: SensorPower,
		SequenceNumber: seq, Value1: battPct, Value2: voltage, Value3: current,
		JitterMs: jitterMs, DriftMs: driftMs, Status: StatusNormal, Timestamp: ts,
	}
	switch {
	case battPct <= PowerCriticalPct:
		r.Priority, r.Status = PriorityCritical, StatusEmergency
	case battPct <= PowerLowPct:
		r.Priority, r.Status = PriorityImportant, StatusWarning
	default:
		r.Priority = PriorityNormal
	}
	if battPct < 0 || battPct > 100 {
		r.Quality = QualityInvalid
	} else {
		r.Quality = QualityExcellent
	}
	return r
}

// Attitude thresholds (degrees of combined pointing error), per spec §3.
const (
	AttitudeCriticalDeg      = 15.0
	AttitudeMaxAcceptableDeg = 5.0
)

// NewAttitudeReading derives priority/quality for an attitude sample.
// roll, pitch, yaw map to Value1, Value2, Value3; Value4 carries the
// combined pointing error for downstream consumers.
func NewAttitudeReading(sensorID int, name string, seq uint64, roll, pitch, yaw float64, errDeg float64, jitterMs, driftMs float64, ts time.Time) SensorReading {
	r := SensorReading{
		SensorID: sensorID, SensorName: name, SensorType: SensorAttitude,
		SequenceNumber: seq, Value1: roll, Value2: pitch, Value3: yaw, Value4: errDeg,
		JitterMs: jitterMs, DriftMs: driftMs, Status: StatusNormal, Quality: QualityExcellent, Timestamp: ts,
	}
	switch {
	case errDeg >= AttitudeCriticalDeg:
		r.Priority, r.Status = PriorityCritical, StatusEmergency
	case errDeg >= AttitudeMaxAcceptableDeg:
		r.Priority, r.Status = PriorityImportant, StatusWarning
	default:
		r.Priority = PriorityNormal
	}
	return r
}

// CommandType enumerates the kinds of uplinked commands.
type CommandType string

// AckStatus is the lifecycle status reported back for a Command.
type AckStatus string

const (
	AckReceived  AckStatus = "received"
	AckExecuting AckStatus = "executing"
	AckCompleted AckStatus = "completed"
	AckFailed    AckStatus = "failed"
)

// Command is an uplinked instruction from ground control.
type Command struct {
	CommandID    string            `json:"command_id"`
	CommandType  CommandType       `json:"command_type"`
	TargetSystem string            `json:"target_system"`
	Deadline     time.Time         `json:"deadline"`
	Param1       float64           `json:"param1"`
	Param2       float64           `json:"param2"`
	Param3       float64           `json:"param3"`
	Param4       float64           `json:"param4"`
	Key          string            `json:"key"`
	Metadata     map[string]string `json:"metadata"`
}

// CommandAcknowledgment correlates back to a Command by CommandID.
type CommandAcknowledgment struct {
	CommandID           string     `json:"command_id"`
	Status              AckStatus  `json:"status"`
	ExecutionTimestamp  *time.Time `json:"execution_timestamp,omitempty"`
	CompletionTimestamp *time.Time `json:"completion_timestamp,omitempty"`
}

// Severity levels for EmergencyData.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// EmergencyData is an out-of-band alert sent on the emergency fast path.
type EmergencyData struct {
	AlertID                 string    `json:"alert_id"`
	Severity                Severity  `json:"severity"`
	AlertType               string    `json:"alert_type"`
	Description             string    `json:"description"`
	AutoRecoveryAttempted   bool      `json:"auto_recovery_attempted"`
	Timestamp               time.Time `json:"timestamp"`
}

// SystemHealth is the payload of the periodic heartbeat packet.
type SystemHealth struct {
	OverallStatus  string    `json:"overall_status"`
	CPUPercent     float64   `json:"cpu_percent"`
	MemoryPercent  float64   `json:"memory_percent"`
	ActiveFaults   int       `json:"active_faults"`
	Timestamp      time.Time `json:"timestamp"`
}

// PacketType identifies the payload variant carried by a CommunicationPacket.
type PacketType string

const (
	PacketTelemetry PacketType = "telemetry"
	PacketCommand   PacketType = "command"
	PacketAck       PacketType = "ack"
	PacketEmergency PacketType = "emergency"
	PacketHeartbeat PacketType = "heartbeat"
)

// Endpoint identifies one side of the satellite/ground link.
type Endpoint string

const (
	EndpointSatellite     Endpoint = "satellite"
	EndpointGroundControl Endpoint = "ground_control"
)

// PacketPayload is exactly one of the fields below, selected by Type on the
// enclosing CommunicationPacket.
type PacketPayload struct {
	Telemetry []SensorReading        `json:"telemetry,omitempty"`
	Command   *Command                `json:"command,omitempty"`
	Ack       *CommandAcknowledgment   `json:"ack,omitempty"`
	Emergency *EmergencyData           `json:"emergency,omitempty"`
	Heartbeat *SystemHealth            `json:"heartbeat,omitempty"`
}

// CommunicationPacket is the logical, unencrypted message exchanged between
// the satellite and ground control.
type CommunicationPacket struct {
	PacketID          string        `json:"packet_id"`
	Source            Endpoint      `json:"source"`
	Destination       Endpoint      `json:"destination"`
	PacketType        PacketType    `json:"packet_type"`
	SequenceNumber    uint32        `json:"sequence_number"`
	Timestamp         time.Time     `json:"timestamp"`
	PayloadSizeBytes  int           `json:"payload_size_bytes"`
	ProtocolVersion   uint16        `json:"protocol_version"`
	Payload           PacketPayload `json:"payload"`
}

// ProtocolVersion is the only wire version this implementation speaks.
const ProtocolVersion uint16 = 1

// NewTelemetryPacket wraps readings as a telemetry packet. PayloadSizeBytes
// is left at 0; callers that need it fill it in once the packet is sealed.
func NewTelemetryPacket(packetID string, seq uint32, src, dst Endpoint, readings []SensorReading, ts time.Time) CommunicationPacket {
	return CommunicationPacket{
		PacketID: packetID, Source: src, Destination: dst,
		PacketType: PacketTelemetry, SequenceNumber: seq, Timestamp: ts,
		ProtocolVersion: ProtocolVersion,
		Payload:         PacketPayload{Telemetry: readings},
	}
}

// NewEmergencyPacket wraps a single alert as an emergency packet.
func NewEmergencyPacket(packetID string, seq uint32, src, dst Endpoint, e EmergencyData, ts time.Time) CommunicationPacket {
	return CommunicationPacket{
		PacketID: packetID, Source: src, Destination: dst,
		PacketType: PacketEmergency, SequenceNumber: seq, Timestamp: ts,
		ProtocolVersion: ProtocolVersion,
		Payload:         PacketPayload{Emergency: &e},
	}
}

// NewHeartbeatPacket wraps system health as a heartbeat packet.
func NewHeartbeatPacket(packetID string, seq uint32, src, dst Endpoint, h SystemHealth, ts time.Time) CommunicationPacket {
	return CommunicationPacket{
		PacketID: packetID, Source: src, Destination: dst,
		PacketType: PacketHeartbeat, SequenceNumber: seq, Timestamp: ts,
		ProtocolVersion: ProtocolVersion,
		Payload:         PacketPayload{Heartbeat: &h},
	}
}

// NewCommandPacket wraps a command for uplink.
func NewCommandPacket(packetID string, seq uint32, src, dst Endpoint, c Command, ts time.Time) CommunicationPacket {
	return CommunicationPacket{
		PacketID: packetID, Source: src, Destination: dst,
		PacketType: PacketCommand, SequenceNumber: seq, Timestamp: ts,
		ProtocolVersion: ProtocolVersion,
		Payload:         PacketPayload{Command: &c},
	}
}

// NewAckPacket wraps an acknowledgement for downlink.
func NewAckPacket(packetID string, seq uint32, src, dst Endpoint, a CommandAcknowledgment, ts time.Time) CommunicationPacket {
	return CommunicationPacket{
		PacketID: packetID, Source: src, Destination: dst,
		PacketType: PacketAck, SequenceNumber: seq, Timestamp: ts,
		ProtocolVersion: ProtocolVersion,
		Payload:         PacketPayload{Ack: &a},
	}
}
