// Package metrics exposes Prometheus collectors for upstream traffic and
// model loads.
package metrics

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielmmetz/hn-feed/feed"
)

type Metrics struct {
	registry *prometheus.Registry

	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	UpstreamInFlight prometheus.Gauge

	StoriesLoaded  prometheus.Gauge
	ItemsFailed    *prometheus.CounterVec
	EventsReceived *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, plus the Go and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hnfeed_upstream_requests_total",
			Help: "Requests sent to the Hacker News API, by status code and method",
		}, []string{"code", "method"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hnfeed_upstream_request_duration_seconds",
			Help:    "Latency of requests to the Hacker News API",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"code", "method"}),
		UpstreamInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hnfeed_upstream_in_flight_requests",
			Help: "Requests to the Hacker News API currently outstanding",
		}),
		StoriesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hnfeed_stories_loaded",
			Help: "Stories held by the model after the last load",
		}),
		ItemsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hnfeed_items_failed_total",
			Help: "Items dropped from a fan-out fetch, by kind of load",
		}, []string{"load"}),
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hnfeed_model_events_total",
			Help: "Model change events, by type",
		}, []string{"type"}),
	}
	reg.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.UpstreamInFlight,
		m.StoriesLoaded,
		m.ItemsFailed,
		m.EventsReceived,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InstrumentTransport wraps next (http.DefaultTransport when nil) so every
// upstream request is counted and timed.
func (m *Metrics) InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperInFlight(m.UpstreamInFlight,
		promhttp.InstrumentRoundTripperCounter(m.UpstreamRequests,
			promhttp.InstrumentRoundTripperDuration(m.UpstreamDuration, next),
		),
	)
}

// Publish counts model events and the items they report as failed, so
// Metrics can sit next to the SSE broker as a model publisher.
func (m *Metrics) Publish(eventType, data string) {
	m.EventsReceived.WithLabelValues(eventType).Inc()

	var payload struct {
		Count  int   `json:"count"`
		Failed []int `json:"failed"`
	}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		slog.Debug("metrics: undecodable event", "event", eventType, "error", err)
		return
	}
	switch eventType {
	case feed.EventStoriesUpdated:
		m.StoriesLoaded.Set(float64(payload.Count))
		m.ItemsFailed.WithLabelValues("stories").Add(float64(len(payload.Failed)))
	case feed.EventCommentsUpdated:
		m.ItemsFailed.WithLabelValues("comments").Add(float64(len(payload.Failed)))
	}
}
