package broker

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	natsSubjectPrefix = "room."
	natsSubjectSuffix = ".events"
	natsWildcard      = natsSubjectPrefix + "*" + natsSubjectSuffix
)

const tracerName = "burnroom/broker"

// headerCarrier adapts nats.Header to propagation.TextMapCarrier.
type headerCarrier nats.Header

func (c headerCarrier) Get(key string) string { return nats.Header(c).Get(key) }

func (c headerCarrier) Set(key, value string) { nats.Header(c).Set(key, value) }

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

func natsSubject(channel string) string {
	return natsSubjectPrefix + channel + natsSubjectSuffix
}

func channelFromSubject(subject string) (string, bool) {
	rest, ok := strings.CutPrefix(subject, natsSubjectPrefix)
	if !ok {
		return "", false
	}
	channel, ok := strings.CutSuffix(rest, natsSubjectSuffix)
	if !ok || !validChannel(channel) {
		return "", false
	}
	return channel, true
}

// NATS is a broker over core NATS subjects room.<id>.events. Trace context
// travels in message headers.
type NATS struct {
	nc     *nats.Conn
	tracer trace.Tracer
	prop   propagation.TextMapPropagator
	log    *zerolog.Logger
}

// NATSOption configures a NATS broker.
type NATSOption func(*NATS)

// WithTracerProvider sets the provider for publish and process spans.
// The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) NATSOption {
	return func(n *NATS) {
		n.tracer = tp.Tracer(tracerName)
	}
}

// WithPropagator sets how trace context is written to message headers.
// The global propagator is used by default.
func WithPropagator(p propagation.TextMapPropagator) NATSOption {
	return func(n *NATS) {
		n.prop = p
	}
}

// NewNATS connects to url.
func NewNATS(url string, logger *zerolog.Logger, opts ...NATSOption) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("burnroom"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return newNATS(nc, logger, opts...), nil
}

func newNATS(nc *nats.Conn, logger *zerolog.Logger, opts ...NATSOption) *NATS {
	n := &NATS{
		nc:     nc,
		tracer: otel.GetTracerProvider().Tracer(tracerName),
		prop:   otel.GetTextMapPropagator(),
		log:    logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Publish implements Broker.
func (n *NATS) Publish(ctx context.Context, channel, event string) error {
	if !validChannel(channel) {
		return fmt.Errorf("%w: %q", ErrInvalidChannel, channel)
	}
	msg, span := n.outbound(ctx, channel, event)
	defer span.End()

	if err := n.nc.PublishMsg(msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// outbound builds the message for event under a producer span. The caller ends the span.
func (n *NATS) outbound(ctx context.Context, channel, event string) (*nats.Msg, trace.Span) {
	subject := natsSubject(channel)
	ctx, span := n.tracer.Start(ctx, subject+" publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "nats"),
			attribute.String("messaging.destination.name", subject),
			attribute.String("burnroom.event", event),
		),
	)
	msg := &nats.Msg{Subject: subject, Data: []byte(event), Header: nats.Header{}}
	n.prop.Inject(ctx, headerCarrier(msg.Header))
	return msg, span
}

// Run implements Broker.
func (n *NATS) Run(ctx context.Context, h Handler) error {
	msgs := make(chan *nats.Msg, 256)
	sub, err := n.nc.ChanSubscribe(natsWildcard, msgs)
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	n.log.Info().Str("subject", natsWildcard).Msg("nats broker subscribed")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			n.deliver(ctx, msg, h)
		}
	}
}

// deliver hands msg to h under a consumer span continuing the publisher's trace.
func (n *NATS) deliver(ctx context.Context, msg *nats.Msg, h Handler) {
	channel, ok := channelFromSubject(msg.Subject)
	if !ok {
		n.log.Debug().Str("subject", msg.Subject).Msg("ignoring foreign subject")
		return
	}
	mctx := n.prop.Extract(ctx, headerCarrier(msg.Header))
	mctx, span := n.tracer.Start(mctx, msg.Subject+" process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "nats"),
			attribute.String("messaging.destination.name", msg.Subject),
		),
	)
	defer span.End()
	h(mctx, Delivery{Channel: channel, Event: string(msg.Data)})
}

// Close implements Broker.
func (n *NATS) Close() error {
	return n.nc.Drain()
}
