package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Webhook metrics
	WebhooksReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_webhooks_received_total",
			Help: "Total number of webhook notifications received",
		},
		[]string{"type"}, // incomingMessageReceived|other
	)

	MessagesHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_messages_handled_total",
			Help: "Total number of inbound messages handled",
		},
		[]string{"outcome"}, // command|selection|echo|unauthorized|unsupported
	)

	// Command metrics
	CommandExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_command_executions_total",
			Help: "Total number of command executions",
		},
		[]string{"command", "status"}, // status: success|error
	)

	// Session metrics
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hermes_sessions_active_count",
			Help: "Current number of pending selection sessions",
		},
	)

	SessionsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_sessions_resolved_total",
			Help: "Total number of session resolutions",
		},
		[]string{"result"}, // selected|invalid|expired
	)

	// Download metrics
	DownloadsQueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hermes_downloads_queued_total",
			Help: "Total number of downloads submitted to the queue",
		},
	)

	DownloadsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_downloads_completed_total",
			Help: "Total number of completed downloads",
		},
		[]string{"status"}, // success|error|dropped
	)

	DownloadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hermes_download_duration_seconds",
			Help:    "Download duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// Provider metrics
	ProviderAPICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_provider_api_calls_total",
			Help: "Total number of WhatsApp provider API calls",
		},
		[]string{"endpoint", "status"}, // status: success|error
	)

	ProviderAPILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hermes_provider_api_latency_seconds",
			Help:    "WhatsApp provider API latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hermes_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"worker"},
	)
)

func init() {
	prometheus.MustRegister(
		WebhooksReceived,
		MessagesHandled,
		CommandExecutions,
		SessionsActive,
		SessionsResolved,
		DownloadsQueued,
		DownloadsCompleted,
		DownloadDuration,
		ProviderAPICalls,
		ProviderAPILatency,
		WorkerExecutions,
		WorkerDuration,
	)
}

// Handler returns the HTTP handler for the /metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
