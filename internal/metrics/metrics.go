// Package metrics wires the engine's per-symbol and pipeline-wide
// counters into a Prometheus registry (spec §4.7 [ADD], C10), exposed
// over HTTP by promhttp when a listen address is configured. Grounded on
// vegaprotocol-vega's internal/metrics/prometheus.go pattern of
// package-level vectors registered once at startup.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric the pipeline updates from the matching
// and publisher threads. Updates must be lock-free and allocation-free
// on the hot path — prometheus counters/histograms satisfy both.
type Registry struct {
	CommandsTotal    *prometheus.CounterVec
	TradesTotal      *prometheus.CounterVec
	RejectsTotal     *prometheus.CounterVec
	MatchLatencyNS   *prometheus.HistogramVec
	QueueDepth       *prometheus.GaugeVec
	PublisherWriteNS prometheus.Histogram

	registry *prometheus.Registry
}

// NewRegistry constructs and registers every metric against its own
// fresh prometheus.Registry (tests can discard it; production wires it
// into an HTTP handler via Serve).
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &Registry{
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_commands_total",
			Help: "Commands processed per symbol and type.",
		}, []string{"symbol", "type"}),
		TradesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_trades_total",
			Help: "Trades emitted per symbol.",
		}, []string{"symbol"}),
		RejectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_rejects_total",
			Help: "Commands rejected at the book boundary per symbol and reason.",
		}, []string{"symbol", "reason"}),
		MatchLatencyNS: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clob_match_latency_ns",
			Help:    "Per-command matching latency in nanoseconds.",
			Buckets: prometheus.ExponentialBuckets(50, 2, 16),
		}, []string{"symbol"}),
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clob_queue_depth",
			Help: "Current depth of a command or event queue.",
		}, []string{"symbol", "queue"}),
		PublisherWriteNS: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "clob_publisher_write_latency_ns",
			Help:    "Latency of one publisher log-record write in nanoseconds.",
			Buckets: prometheus.ExponentialBuckets(100, 2, 16),
		}),
	}
	r.registry = reg
	return r
}

// Serve starts an HTTP server exposing /metrics on addr, returning once
// ctx is cancelled or the listener fails. A blank addr disables the
// listener entirely (spec §6 config: metrics_addr).
func (r *Registry) Serve(ctx context.Context, addr string, log *slog.Logger) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
