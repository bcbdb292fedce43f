package proto

import "encoding/json"

// Inbound is the envelope for realtime frames coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeSubscribe   = "subscribe"
	InboundTypeUnsubscribe = "unsubscribe"

	OutboundTypeSubscribed = "subscribed"
	OutboundTypeEvent      = "event"
	OutboundTypeError      = "error"

	EventChatMessage = "chat.message"
	EventChatDestroy = "chat.destroy"

	ErrCodeBadRequest         = "bad_request"
	ErrCodeInvalidMessage     = "invalid_message"
	ErrCodeUnsupportedVersion = "unsupported_version"
)

// SubscribeData asks for events of the given kinds on the given channels.
// An empty Events list means every kind.
type SubscribeData struct {
	Channels []string `json:"channels"`
	Events   []string `json:"events,omitempty"`
	Protocol int      `json:"protocol,omitempty"`
}

// Outbound is the envelope for realtime frames sent to the client.
// Event frames carry no payload beyond channel and event name: receivers
// refetch authoritative state over HTTP.
type Outbound struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Event   string `json:"event,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
