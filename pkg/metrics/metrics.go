package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	LoginsTotal      *prometheus.CounterVec
	ResolutionsTotal *prometheus.CounterVec
	RevocationsTotal prometheus.Counter
	CacheRequests    *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		ResolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_resolutions_total",
			Help:      "Bearer token resolutions by outcome.",
		}, []string{"outcome"}),
		RevocationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_revocations_total",
			Help:      "Tokens placed on the revocation list.",
		}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_cache_requests_total",
			Help:      "Session cache lookups by key family and result.",
		}, []string{"family", "result"}),
	}

	reg.MustRegister(
		m.LoginsTotal,
		m.ResolutionsTotal,
		m.RevocationsTotal,
		m.CacheRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// The helpers below tolerate a nil receiver so components can run without
// metrics in tests.

func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Resolution(outcome string) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Revocation() {
	if m == nil {
		return
	}
	m.RevocationsTotal.Inc()
}

func (m *Metrics) Cache(family, result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(family, result).Inc()
}
