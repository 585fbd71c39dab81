package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudpico_forecast",
			Name:      "fetches_total",
			Help:      "Upstream weather fetches by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cloudpico_forecast",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of upstream weather fetches.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	MQTTPublishFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cloudpico_forecast",
			Name:      "mqtt_publish_failures_total",
			Help:      "Weather payloads that could not be published to MQTT.",
		},
	)
)

// ObserveFetch records one completed fetch.
func ObserveFetch(kind string, ok bool, d time.Duration) {
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeError
	}
	FetchesTotal.WithLabelValues(kind, outcome).Inc()
	FetchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}
