// Package health sends a periodic heartbeat packet carrying the satellite's
// overall system health (SPEC_FULL.md §4.8).
package health

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satellite-ocs/satellite-ocs/internal/crypto"
	"github.com/satellite-ocs/satellite-ocs/internal/csvlog"
	"github.com/satellite-ocs/satellite-ocs/internal/model"
	"github.com/satellite-ocs/satellite-ocs/internal/netio"
	"github.com/satellite-ocs/satellite-ocs/internal/observability"
)

const period = time.Second

// Heartbeat periodically seals and sends a nominal SystemHealth packet.
type Heartbeat struct {
	crypto  *crypto.Context
	sock    *netio.Sockets
	csv     *csvlog.Log
	logger  *zap.Logger
	metrics *observability.Metrics
	seq     uint32
}

// New builds a Heartbeat. metrics may be nil.
func New(cryptoCtx *crypto.Context, sock *netio.Sockets, log *csvlog.Log, logger *zap.Logger, metrics *observability.Metrics) *Heartbeat {
	return &Heartbeat{crypto: cryptoCtx, sock: sock, csv: log, logger: logger, metrics: metrics}
}

// Run emits one heartbeat every second until ctx is cancelled.
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.emit(now)
		}
	}
}

func (h *Heartbeat) emit(now time.Time) {
	h.seq++
	bytes, err := h.seal(now)
	if err != nil {
		h.logger.Warn("heartbeat seal error", zap.Error(err))
		if h.metrics != nil {
			h.metrics.SealErrorsTotal.Inc()
		}
		return
	}
	if err := h.sock.Send(bytes); err != nil {
		h.logger.Warn("heartbeat send error", zap.Error(err))
		return
	}
	if h.csv != nil {
		h.csv.Packet(now, string(model.PacketHeartbeat), h.seq, len(bytes))
	}
}

// seal builds and seals the nominal SystemHealth packet for the current
// sequence number, split out from emit for testability without a socket.
func (h *Heartbeat) seal(now time.Time) ([]byte, error) {
	sh := model.SystemHealth{OverallStatus: "nominal", Timestamp: now}
	pkt := model.NewHeartbeatPacket(uuid.NewString(), h.seq, model.EndpointSatellite, model.EndpointGroundControl, sh, now)
	return h.crypto.Seal(pkt)
}
