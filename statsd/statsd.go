// Package statsd serves the connector statistics pipeline over HTTP: a
// compute endpoint for bucketed rate series, an axis tick utility, and a
// live row feed with websocket watch.
package statsd

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cdr.dev/slog"
	"github.com/coder/quartz"
)

// Options configures a stats API. Zero values get sensible defaults; Clock
// and Registry exist so tests can inject a mock clock and inspect metrics.
type Options struct {
	Logger        slog.Logger
	Clock         quartz.Clock
	Registry      *prometheus.Registry
	FlushInterval time.Duration
}

// API is the stats server. It implements http.Handler.
type API struct {
	Logger slog.Logger
	Feed   *Feed

	router  chi.Router
	metrics metrics
}

type metrics struct {
	rowsIngested     prometheus.Counter
	seriesComputed   prometheus.Counter
	watchConnections prometheus.Gauge
}

// New assembles the router and starts the feed's flush loop. Callers must
// Close the API to stop it.
func New(opts Options) *API {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(opts.Registry)
	api := &API{
		Logger: opts.Logger,
		Feed:   NewFeed(opts.Logger.Named("feed"), opts.Clock, opts.FlushInterval),
		metrics: metrics{
			rowsIngested: factory.NewCounter(prometheus.CounterOpts{
				Namespace: "connstats",
				Name:      "rows_ingested_total",
				Help:      "Raw rows appended to connector feeds.",
			}),
			seriesComputed: factory.NewCounter(prometheus.CounterOpts{
				Namespace: "connstats",
				Name:      "series_computed_total",
				Help:      "Series pipeline computations served.",
			}),
			watchConnections: factory.NewGauge(prometheus.GaugeOpts{
				Namespace: "connstats",
				Name:      "watch_connections",
				Help:      "Open websocket watch connections.",
			}),
		},
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	r.Route("/api/v0", func(r chi.Router) {
		r.Post("/series", api.computeSeries)
		r.Get("/ticks", api.axisTicks)
		r.Route("/connectors/{connector}", func(r chi.Router) {
			r.Post("/rows", api.postRows)
			r.Get("/rows", api.connectorRows)
			r.Get("/watch", api.watchConnector)
		})
	})
	api.router = r
	return api
}

func (api *API) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	api.router.ServeHTTP(rw, r)
}

// Close stops the feed and disconnects all watchers.
func (api *API) Close() {
	api.Feed.Close()
}
