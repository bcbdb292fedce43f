package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/burnroom/internal/proto"
	"github.com/vovakirdan/burnroom/internal/roomapi"
)

// ws_smoke creates a room on a running server, subscribes to it over the
// websocket, posts a message, destroys the room and expects both events.
func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	user := flag.String("user", "tester", "sender name")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	api, err := roomapi.New(*server, *timeout)
	if err != nil {
		return err
	}
	roomID, err := api.CreateRoom(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Created room %s\n", roomID)

	wsURL := "ws" + strings.TrimPrefix(strings.TrimRight(*server, "/"), "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	payload := fmt.Sprintf(`{"channels":[%q],"protocol":%d}`, roomID, proto.ProtocolVersion)
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSubscribe, Data: []byte(payload)}); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}

	steps := []struct {
		expect string
		action func() error
	}{
		{proto.OutboundTypeSubscribed, func() error {
			_, err := api.PostMessage(ctx, roomID, *user, *text)
			return err
		}},
		{proto.EventChatMessage, func() error {
			messages, err := api.Messages(ctx, roomID)
			if err != nil {
				return err
			}
			fmt.Printf("Room holds %d message(s)\n", len(messages))
			return api.DestroyRoom(ctx, roomID)
		}},
		{proto.EventChatDestroy, nil},
	}

	for _, step := range steps {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if outbound.Error != nil {
			return fmt.Errorf("server error %s: %s", outbound.Error.Code, outbound.Error.Msg)
		}

		got := outbound.Type
		if outbound.Type == proto.OutboundTypeEvent {
			got = outbound.Event
		}
		fmt.Printf("Received outbound: type=%s channel=%s event=%s\n", outbound.Type, outbound.Channel, outbound.Event)
		if got != step.expect {
			return fmt.Errorf("expected %s, got %s", step.expect, got)
		}
		if step.action != nil {
			if err := step.action(); err != nil {
				return err
			}
		}
	}

	fmt.Println("Smoke test passed")
	return nil
}
