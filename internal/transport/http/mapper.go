package http

import (
	"encoding/json"

	"github.com/vovakirdan/burnroom/internal/core"
	"github.com/vovakirdan/burnroom/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	var kind core.CommandKind
	switch inbound.Type {
	case proto.InboundTypeSubscribe:
		kind = core.CommandSubscribe
	case proto.InboundTypeUnsubscribe:
		kind = core.CommandUnsubscribe
	default:
		return nil, &proto.Error{Code: proto.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}

	var data proto.SubscribeData
	if len(inbound.Data) == 0 {
		return nil, &proto.Error{Code: proto.ErrCodeBadRequest, Msg: "data is required"}
	}
	if err := json.Unmarshal(inbound.Data, &data); err != nil {
		return nil, &proto.Error{Code: proto.ErrCodeBadRequest, Msg: "malformed data"}
	}
	// protocol 0 means the client did not say
	if data.Protocol != 0 && data.Protocol != proto.ProtocolVersion {
		return nil, &proto.Error{Code: proto.ErrCodeUnsupportedVersion, Msg: "unsupported protocol version"}
	}
	if len(data.Channels) == 0 {
		return nil, &proto.Error{Code: proto.ErrCodeBadRequest, Msg: "channels are required"}
	}
	for _, ch := range data.Channels {
		if ch == "" {
			return nil, &proto.Error{Code: proto.ErrCodeBadRequest, Msg: "empty channel name"}
		}
	}

	cmd := &core.Command{Kind: kind, Channels: data.Channels}
	for _, name := range data.Events {
		ev := core.ParseEventKind(name)
		if ev == core.EventUnknown {
			return nil, &proto.Error{Code: proto.ErrCodeBadRequest, Msg: "unknown event " + name}
		}
		cmd.Events = append(cmd.Events, ev)
	}
	return cmd, nil
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventSubscribed:
		return proto.Outbound{Type: proto.OutboundTypeSubscribed}
	case core.EventChatMessage, core.EventChatDestroy:
		return proto.Outbound{
			Type:    proto.OutboundTypeEvent,
			Channel: event.Channel,
			Event:   event.Kind.Name(),
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
