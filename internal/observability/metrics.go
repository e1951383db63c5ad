package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SocketEventsTotal counts inbound realtime events by name.
	SocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hoodlink_socket_events_total",
		Help: "Total realtime events received by name",
	}, []string{"event"})

	// RoomSubscriptions is the gauge of joined rooms by kind.
	RoomSubscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hoodlink_room_subscriptions",
		Help: "Number of realtime rooms currently joined",
	}, []string{"kind"})

	// APIRequestDuration records REST call latency by endpoint and status.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hoodlink_api_request_duration_seconds",
		Help:    "REST API request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "status"})

	// InboxRefetchTotal counts full conversation refetches by reason.
	InboxRefetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hoodlink_inbox_refetch_total",
		Help: "Total conversation list refetches by reason",
	}, []string{"reason"})

	// EchoDuplicatesDropped counts own-message echoes reconciled instead of appended.
	EchoDuplicatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hoodlink_echo_duplicates_dropped_total",
		Help: "Total echoed messages matched to an optimistic entry",
	})

	// CacheErrors counts Redis errors by operation type.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hoodlink_cache_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// LocalClients is the gauge of connected local websocket clients.
	LocalClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hoodlink_local_clients",
		Help: "Number of connected local websocket clients",
	})

	// LocalBackpressureDrops counts local fan-out frames dropped because a client was slow.
	LocalBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hoodlink_local_backpressure_drops_total",
		Help: "Total local websocket frames dropped due to backpressure",
	}, []string{"reason"})

	// ArchiveQueryLatency records archive query latency by operation and table.
	ArchiveQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hoodlink_archive_query_latency_seconds",
		Help:    "Message archive query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// ObserveAPIRequest records the latency of a REST call that started at start.
func ObserveAPIRequest(endpoint string, status int, start time.Time) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	APIRequestDuration.WithLabelValues(endpoint, label).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records archive query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		ArchiveQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
