package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceFields(t *testing.T) {
	assert.Nil(t, TraceFields(context.Background()))

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02},
		SpanID:     trace.SpanID{0x03},
		TraceFlags: trace.FlagsSampled,
	})
	fields := TraceFields(trace.ContextWithSpanContext(context.Background(), sc))

	require.Len(t, fields, 2)
	assert.Equal(t, "trace_id", fields[0].Key)
	assert.Equal(t, sc.TraceID().String(), fields[0].String)
	assert.Equal(t, "span_id", fields[1].Key)
}

func TestNewLogger_Levels(t *testing.T) {
	assert.True(t, NewLogger("debug", "test").Core().Enabled(-1))
	assert.False(t, NewLogger("warn", "test").Core().Enabled(0))
	assert.True(t, NewLogger("error", "test").Core().Enabled(2))
}
