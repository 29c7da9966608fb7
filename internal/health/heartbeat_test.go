package health

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/satellite-ocs/satellite-ocs/internal/crypto"
)

func TestSealProducesOpenableHeartbeat(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	ctx, err := crypto.NewContext(1, key)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	h := New(ctx, nil, nil, zap.NewNop(), nil)
	bytes, err := h.seal(time.Now())
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	pkt, err := ctx.Open(bytes)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if pkt.Payload.Heartbeat == nil {
		t.Fatalf("expected heartbeat payload")
	}
	if pkt.Payload.Heartbeat.OverallStatus != "nominal" {
		t.Fatalf("expected overall_status=nominal, got %q", pkt.Payload.Heartbeat.OverallStatus)
	}
}
