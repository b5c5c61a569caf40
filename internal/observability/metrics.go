package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "shipnotify_api_requests_total", Help: "API requests"},
		[]string{"endpoint", "status"},
	)
	Dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "shipnotify_dispatch_total", Help: "Dispatch outcomes"},
		[]string{"channel", "outcome"},
	)
	Duplicates = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "shipnotify_dispatch_duplicates_total", Help: "Replays short-circuited by the dedup check"},
		[]string{"channel"},
	)
	ProviderSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "shipnotify_provider_send_total", Help: "Provider send outcomes"},
		[]string{"provider", "result"},
	)
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "shipnotify_provider_send_latency_seconds", Help: "Provider send latency"},
		[]string{"provider"},
	)
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "shipnotify_webhook_events_total", Help: "Provider status callback events"},
		[]string{"provider", "status"},
	)
	ConfigCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "shipnotify_config_cache_total", Help: "Settings cache lookups"},
		[]string{"result"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(APIRequests, Dispatches, Duplicates, ProviderSends, ProviderLatency, WebhookEvents, ConfigCache)
}
