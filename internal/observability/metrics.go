// README: Prometheus counters for quotes, ride mutations, sync, and tracking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mototaxi_rider"

var (
	QuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "quotes_total", Help: "Trip quotes computed, by result"},
		[]string{"result"},
	)
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "submissions_total", Help: "Ride submissions, by result"},
		[]string{"result"},
	)
	ReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "reloads_total", Help: "Snapshot reloads, by result"},
		[]string{"result"},
	)
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "notifications_total", Help: "Ride change notifications, by kind"},
		[]string{"kind"},
	)
	SyncDriftTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "sync_drift_total", Help: "Notifications not confirmed by the following reload"},
	)
	TrackingTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "tracking_ticks_total", Help: "Driver position polls, by result"},
		[]string{"result"},
	)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
