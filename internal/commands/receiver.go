// Package commands implements the uplink command receiver of
// SPEC_FULL.md §4.7: deframe, decrypt, log, and acknowledge "received" for
// every inbound command.
package commands

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satellite-ocs/satellite-ocs/internal/crypto"
	"github.com/satellite-ocs/satellite-ocs/internal/csvlog"
	"github.com/satellite-ocs/satellite-ocs/internal/model"
	"github.com/satellite-ocs/satellite-ocs/internal/netio"
	"github.com/satellite-ocs/satellite-ocs/internal/observability"
)

// Receiver handles inbound uplink frames.
type Receiver struct {
	crypto  *crypto.Context
	sock    *netio.Sockets
	csv     *csvlog.Log
	logger  *zap.Logger
	metrics *observability.Metrics
	seq     uint32
}

// New builds a Receiver. metrics may be nil.
func New(cryptoCtx *crypto.Context, sock *netio.Sockets, log *csvlog.Log, logger *zap.Logger, metrics *observability.Metrics) *Receiver {
	return &Receiver{crypto: cryptoCtx, sock: sock, csv: log, logger: logger, metrics: metrics}
}

// Handle processes one raw datagram: deframe, open, and — for a command
// payload — log it and send a "received" ACK. Deframe/decrypt errors are
// dropped and logged; other payload types are ignored here.
//
// TODO: schedule/execute commands and send the "executing"/"completed" ACKs
// the original implementation also left unscheduled.
func (r *Receiver) Handle(buf []byte) {
	pkt, err := r.crypto.Open(buf)
	if err != nil {
		r.logger.Warn("deframe or decrypt error", zap.Error(err))
		if r.metrics != nil {
			r.metrics.OpenErrorsTotal.WithLabelValues("deframe_or_decrypt").Inc()
		}
		return
	}
	if pkt.Payload.Command == nil {
		return
	}
	cmd := pkt.Payload.Command

	if r.metrics != nil {
		r.metrics.CommandsReceivedTotal.Inc()
	}
	r.logger.Info("received command",
		zap.String("cmd_id", cmd.CommandID), zap.String("command_type", string(cmd.CommandType)),
		zap.String("target_system", cmd.TargetSystem))

	now := time.Now()
	ack := model.CommandAcknowledgment{CommandID: cmd.CommandID, Status: model.AckReceived, ExecutionTimestamp: &now}
	r.sendAck(ack)
}

func (r *Receiver) sendAck(ack model.CommandAcknowledgment) {
	r.seq++
	pkt := model.NewAckPacket(uuid.NewString(), r.seq, model.EndpointSatellite, model.EndpointGroundControl, ack, time.Now())
	bytes, err := r.crypto.Seal(pkt)
	if err != nil {
		r.logger.Warn("failed to seal ack", zap.Error(err))
		if r.metrics != nil {
			r.metrics.SealErrorsTotal.Inc()
		}
		return
	}
	if err := r.sock.Send(bytes); err != nil {
		r.logger.Warn("failed to send ack", zap.Error(err))
		return
	}
	if r.csv != nil {
		r.csv.Packet(time.Now(), string(model.PacketAck), r.seq, len(bytes))
	}
}
