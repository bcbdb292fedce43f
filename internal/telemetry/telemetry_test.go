package telemetry

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/vovakirdan/burnroom/internal/config"
)

func TestInitDisabledInstallsPropagatorOnly(t *testing.T) {
	nop := zerolog.Nop()
	shutdown, err := Init(context.Background(), config.TracingConfig{}, &nop)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	assert.Equal(t, []string{"traceparent", "tracestate"}, otel.GetTextMapPropagator().Fields())

	// an incoming trace is carried through even without an exporter
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(trace.ContextWithSpanContext(context.Background(), sc), carrier)
	assert.Equal(t, "00-01020300000000000000000000000000-0405060000000000-01", carrier.Get("traceparent"))
}
