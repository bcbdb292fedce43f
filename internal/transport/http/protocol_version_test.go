package http

import (
	"context"
	"testing"
	"time"

	"github.com/vovakirdan/burnroom/internal/proto"
)

func TestProtocolVersionMismatch(t *testing.T) {
	env := startTestServer(t)

	ctx, closeCtx := context.WithTimeout(context.Background(), 3*time.Second)
	defer closeCtx()

	conn := dialWS(ctx, t, env)
	writeInbound(ctx, t, conn, proto.InboundTypeSubscribe, proto.SubscribeData{
		Channels: []string{"room"},
		Protocol: proto.ProtocolVersion + 1,
	})

	outbound := readOutbound(ctx, t, conn)
	if outbound.Type != proto.OutboundTypeError || outbound.Error == nil || outbound.Error.Code != proto.ErrCodeUnsupportedVersion {
		t.Fatalf("expected unsupported_version error, got %+v", outbound)
	}
}

func TestProtocolVersionOmitted(t *testing.T) {
	env := startTestServer(t)

	ctx, closeCtx := context.WithTimeout(context.Background(), 3*time.Second)
	defer closeCtx()

	conn := dialWS(ctx, t, env)
	subscribeWS(ctx, t, conn, proto.SubscribeData{Channels: []string{"room"}})
}
