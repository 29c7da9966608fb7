package commands

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/satellite-ocs/satellite-ocs/internal/crypto"
	"github.com/satellite-ocs/satellite-ocs/internal/model"
)

func testCtx(t *testing.T) *crypto.Context {
	t.Helper()
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	ctx, err := crypto.NewContext(1, key)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return ctx
}

func TestHandleIgnoresUndecryptableFrame(t *testing.T) {
	r := New(testCtx(t), nil, nil, zap.NewNop(), nil)
	// not even a valid length-prefixed frame; Handle must not panic.
	r.Handle([]byte{0, 0, 0, 0})
}

func TestHandleIgnoresNonCommandPayload(t *testing.T) {
	ctx := testCtx(t)
	r := New(ctx, nil, nil, zap.NewNop(), nil)

	pkt := model.NewHeartbeatPacket("p1", 1, model.EndpointGroundControl, model.EndpointSatellite, model.SystemHealth{}, time.Now())
	bytes, err := ctx.Seal(pkt)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	// Handle should return without attempting to ack (no sock configured;
	// a nil-sock panic would indicate the command branch was wrongly taken).
	r.Handle(bytes)
}
