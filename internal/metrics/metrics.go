// Package metrics exposes prometheus counters/gauges for the ingest
// session, plus a small admin HTTP router serving /metrics and a
// human-readable /book dump of the matching engine.
package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters/gauges shared across the daemons.
type Metrics struct {
	TradesMatched        prometheus.Counter
	NotificationsEmitted prometheus.Counter
	SessionReconnects    prometheus.Counter
	BestBid              prometheus.Gauge
	BestAsk              prometheus.Gauge
}

// New builds and registers the metric set against the default registry.
func New() *Metrics {
	m := &Metrics{
		TradesMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "talaria",
			Name:      "trades_matched_total",
			Help:      "Number of trade notifications received from the ingest session.",
		}),
		NotificationsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "talaria",
			Name:      "notifications_emitted_total",
			Help:      "Number of notifications delivered on the notification port.",
		}),
		SessionReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "talaria",
			Name:      "ingest_session_reconnects_total",
			Help:      "Number of times the ingest supervisor restarted a session.",
		}),
		BestBid: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "talaria",
			Name:      "best_bid_ticks",
			Help:      "Current best bid, in price ticks.",
		}),
		BestAsk: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "talaria",
			Name:      "best_ask_ticks",
			Help:      "Current best ask, in price ticks.",
		}),
	}
	prometheus.MustRegister(
		m.TradesMatched,
		m.NotificationsEmitted,
		m.SessionReconnects,
		m.BestBid,
		m.BestAsk,
	)
	return m
}

// Router builds the admin HTTP router: /metrics for Prometheus scraping and
// /book for a human-readable book dump. bookDump must itself serialize with
// whatever else mutates the engine (the matching engine's own contract is
// that callers, not the engine, provide synchronization); callers pass
// something like (*net.Server).BookDump, which takes its engineLock.
func (m *Metrics) Router(bookDump func() string) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/book", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(bookDump()))
	})
	return r
}
