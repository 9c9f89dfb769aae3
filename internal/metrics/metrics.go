package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labeldesk_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labeldesk_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LedgerMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labeldesk_ledger_mutations_total",
			Help: "Total number of ledger apply-change calls by outcome",
		},
		[]string{"direction", "result"},
	)

	RefreshTokensIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "labeldesk_refresh_tokens_issued_total",
			Help: "Total number of refresh tokens issued",
		},
	)

	RefreshReuseDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labeldesk_refresh_reuse_detected_total",
			Help: "Total number of refresh token reuse detections",
		},
		[]string{"reason"},
	)

	LabelsPurchasedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labeldesk_labels_purchased_total",
			Help: "Total number of label purchases by carrier",
		},
		[]string{"carrier"},
	)

	TrackingJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labeldesk_tracking_jobs_total",
			Help: "Total number of tracking activation jobs by outcome",
		},
		[]string{"result"},
	)

	TrackingQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "labeldesk_tracking_queue_length",
			Help: "Current length of the tracking activation queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordLedgerMutation(direction, result string) {
	LedgerMutationsTotal.WithLabelValues(direction, result).Inc()
}

func RecordRefreshIssued() {
	RefreshTokensIssuedTotal.Inc()
}

func RecordReuseDetected(reason string) {
	RefreshReuseDetectedTotal.WithLabelValues(reason).Inc()
}

func RecordLabelPurchase(carrier string) {
	LabelsPurchasedTotal.WithLabelValues(carrier).Inc()
}

func RecordTrackingJob(result string) {
	TrackingJobsTotal.WithLabelValues(result).Inc()
}
