package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the service collectors. It satisfies usecase.Recorder.
type Registry struct {
	reg             *prometheus.Registry
	Resolutions     *prometheus.CounterVec
	Generations     *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allergen_resolutions_total",
		Help: "Product resolutions by outcome.",
	}, []string{"outcome"})
	generations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allergen_generations_total",
		Help: "Description generation calls by kind and result.",
	}, []string{"kind", "result"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "allergen_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	r.MustRegister(
		resolutions,
		generations,
		requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Registry{
		reg:             r,
		Resolutions:     resolutions,
		Generations:     generations,
		RequestDuration: requestDuration,
	}
}

func (r *Registry) ObserveResolution(outcome string) {
	r.Resolutions.WithLabelValues(outcome).Inc()
}

func (r *Registry) ObserveGeneration(kind string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	r.Generations.WithLabelValues(kind, result).Inc()
}

// ObserveRequest records one served HTTP request. route is the matched
// route template, never the raw path, to keep label cardinality bounded.
func (r *Registry) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	r.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
