package observability

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ExtractCorrelationID(ctx))

	id := GenerateCorrelationID()
	assert.NotEmpty(t, id)
	assert.Equal(t, id, ExtractCorrelationID(WithCorrelationID(ctx, id)))
}

func TestObserveAPIRequest_LabelsStatus(t *testing.T) {
	ObserveAPIRequest("/api/test-observe", 200, time.Now())
	ObserveAPIRequest("/api/test-observe", 0, time.Now())

	for _, status := range []string{"200", "error"} {
		h, err := APIRequestDuration.GetMetricWithLabelValues("/api/test-observe", status)
		require.NoError(t, err)
		m := &dto.Metric{}
		require.NoError(t, h.(interface{ Write(*dto.Metric) error }).Write(m))
		assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
	}
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "hoodlink-test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	span, ctx := StartAPISpan(context.Background(), "GET", "/api/x")
	require.NotNil(t, ctx)
	span.SetError(errors.New("boom"))
	span.End()
}

func TestSyncLogger_DoesNotPanic(t *testing.T) {
	SetupLogger("debug", "test")
	l := NewSyncLogger("test")
	ctx := WithCorrelationID(context.Background(), "c-1")
	l.LogConnect(ctx, "ws://x", "sid")
	l.LogRoom(ctx, "join", "1_2", 1)
	l.LogEvent(ctx, "receive_message", "1_2")
	l.LogError(ctx, "receive_message", "1_2", errors.New("bad payload"))
	l.LogLifecycle(ctx, "reconnect", map[string]interface{}{"attempt": 2})
	l.LogDisconnect(ctx, "eof")
}
