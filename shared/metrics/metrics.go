package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LoginRecorder receives social login outcomes from the usecase layer.
type LoginRecorder interface {
	RecordLogin(provider, outcome string, duration time.Duration)
	RecordDuplicateCallback(provider string)
}

// Collector is the Prometheus LoginRecorder.
type Collector struct {
	logins             *prometheus.CounterVec
	loginLatency       *prometheus.HistogramVec
	duplicateCallbacks *prometheus.CounterVec
}

// NewCollector registers the login metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_social_logins_total",
			Help: "Social login attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		loginLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auth_social_login_duration_seconds",
			Help:    "Social login flow latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		duplicateCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_social_duplicate_callbacks_total",
			Help: "Callbacks rejected because the authorization code was already claimed.",
		}, []string{"provider"}),
	}

	reg.MustRegister(c.logins, c.loginLatency, c.duplicateCallbacks)

	return c
}

func (c *Collector) RecordLogin(provider, outcome string, duration time.Duration) {
	c.logins.WithLabelValues(provider, outcome).Inc()
	c.loginLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

func (c *Collector) RecordDuplicateCallback(provider string) {
	c.duplicateCallbacks.WithLabelValues(provider).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordLogin(string, string, time.Duration) {}
func (Nop) RecordDuplicateCallback(string)            {}
