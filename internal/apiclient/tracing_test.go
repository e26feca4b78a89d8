package apiclient

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return rec, tp
}

func spanAttr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_SuccessSpan(t *testing.T) {
	rec, tp := newRecordingTracer(t)
	doer := &scriptedDoer{steps: []func(*http.Request) (*http.Response, error){
		respond(http.StatusOK, `{"id":"abc"}`),
	}}
	c := newTestClient(t, testConfig("http://backend"), WithDoer(doer), WithTracer(tp.Tracer("test")))

	out := Get[presentation](context.Background(), c, "/presentation/abc")
	require.True(t, out.Success, out.Error)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "apiclient.request", span.Name())
	assert.NotEqual(t, codes.Error, span.Status().Code)

	method, ok := spanAttr(span.Attributes(), "http.request.method")
	require.True(t, ok)
	assert.Equal(t, "GET", method.AsString())

	status, ok := spanAttr(span.Attributes(), "http.response.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(200), status.AsInt64())

	attempts, ok := spanAttr(span.Attributes(), "pptgen.attempts")
	require.True(t, ok)
	assert.Equal(t, int64(1), attempts.AsInt64())
}

func TestTracing_FailureSpan(t *testing.T) {
	rec, tp := newRecordingTracer(t)
	doer := &scriptedDoer{steps: []func(*http.Request) (*http.Response, error){
		respond(http.StatusOK, `not json`),
	}}
	c := newTestClient(t, testConfig("http://backend"), WithDoer(doer), WithTracer(tp.Tracer("test")))

	out := Get[presentation](context.Background(), c, "/presentation/abc")
	require.False(t, out.Success)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.NotEmpty(t, spans[0].Events(), "error should be recorded on the span")
}
