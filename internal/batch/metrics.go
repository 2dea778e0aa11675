package batch

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"finpipe/internal/pipeline"
)

// Metrics aggregates pipeline activity for the batch listener.
type Metrics struct {
	registry      *prometheus.Registry
	documents     *prometheus.CounterVec
	costUSD       prometheus.Counter
	stageDuration *prometheus.HistogramVec
}

// NewMetrics builds the collector set on a private registry so batch
// runs don't collide with the default global one.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finpipe_documents_total",
			Help: "Documents processed by the batch watcher, by result.",
		}, []string{"result"}),
		costUSD: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finpipe_estimated_cost_usd_total",
			Help: "Accumulated flat cost estimates across completed stages.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finpipe_stage_duration_seconds",
			Help:    "Wall-clock duration of each pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"stage"}),
	}
	reg.MustRegister(m.documents, m.costUSD, m.stageDuration)
	return m
}

// ObserveStage records one completed stage; wired as the runner's
// observer callback.
func (m *Metrics) ObserveStage(sr pipeline.StageResult) {
	m.stageDuration.WithLabelValues(sr.Label).Observe(sr.Duration.Seconds())
	m.costUSD.Add(sr.CostUSD)
}

// DocumentDone records a finished document run.
func (m *Metrics) DocumentDone(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.documents.WithLabelValues(result).Inc()
}

// Router exposes /healthz and /metrics with permissive CORS, for
// scraping and liveness checks while the watcher loops.
func (m *Metrics) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return r
}
