package otel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"parking/infras/otel"
)

func record(t *testing.T, fn func(scope otel.Scope)) trace.ReadOnlySpan {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))

	_, span := provider.Tracer("test").Start(context.Background(), "booking.Reserve")
	scope := otel.NewScope(span)

	fn(scope)
	scope.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)

	return ended[0]
}

func TestScopeAttributes(t *testing.T) {
	span := record(t, func(scope otel.Scope) {
		scope.SetAttributes(map[string]any{
			"booking.id":    "b-1",
			"slot.count":    3,
			"lot.occupied":  int64(12),
			"lot.occupancy": 0.75,
			"roles":         []string{"user"},
			"held":          90 * time.Second,
			"paid":          true,
		})
	})

	got := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		got[kv.Key] = kv.Value
	}

	assert.Equal(t, "b-1", got["booking.id"].AsString())
	assert.Equal(t, int64(3), got["slot.count"].AsInt64())
	assert.Equal(t, int64(12), got["lot.occupied"].AsInt64())
	assert.InDelta(t, 0.75, got["lot.occupancy"].AsFloat64(), 0.0001)
	assert.Equal(t, []string{"user"}, got["roles"].AsStringSlice())
	assert.Equal(t, int64(90000), got["held"].AsInt64())
	assert.True(t, got["paid"].AsBool())
}

func TestScopeTraceIfError(t *testing.T) {
	clean := record(t, func(scope otel.Scope) {
		scope.TraceIfError(nil)
	})
	assert.Equal(t, codes.Unset, clean.Status().Code)

	failed := record(t, func(scope otel.Scope) {
		scope.TraceIfError(errors.New("slot_not_available"))
	})
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, "slot_not_available", failed.Status().Description)
	assert.NotEmpty(t, failed.Events())
}
