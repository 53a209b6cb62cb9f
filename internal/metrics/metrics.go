// Package metrics exposes Prometheus counters for the publishing workflow.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry       *prometheus.Registry
	writes         *prometheus.CounterVec
	remoteFailures *prometheus.CounterVec
	previews       *prometheus.CounterVec
	logins         *prometheus.CounterVec
	orphansRemoved prometheus.Counter
	requests       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revue_articles_written_total",
			Help: "Article writes accepted by the table store, by operation.",
		}, []string{"op"}),
		remoteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revue_remote_failures_total",
			Help: "Failed calls to the table or object store, by operation.",
		}, []string{"op"}),
		previews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revue_previews_total",
			Help: "PDF previews rendered, by final state.",
		}, []string{"state"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revue_logins_total",
			Help: "Admin login attempts, by result.",
		}, []string{"result"}),
		orphansRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "revue_orphans_removed_total",
			Help: "Stored documents removed because no article referenced them.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revue_http_requests_total",
			Help: "HTTP requests served, by route and status code.",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(
		m.writes, m.remoteFailures, m.previews, m.logins, m.orphansRemoved, m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ArticleWritten(op string) {
	if m != nil {
		m.writes.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) RemoteFailure(op string) {
	if m != nil {
		m.remoteFailures.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) Preview(state string) {
	if m != nil {
		m.previews.WithLabelValues(state).Inc()
	}
}

func (m *Metrics) Login(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) OrphanRemoved() {
	if m != nil {
		m.orphansRemoved.Inc()
	}
}

func (m *Metrics) Request(route, code string) {
	if m != nil {
		m.requests.WithLabelValues(route, code).Inc()
	}
}
