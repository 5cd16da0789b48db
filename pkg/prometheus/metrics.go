package prometheus

import (
	"context"
	"errors"

	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// MakeMetrics returns a request counter and a latency histogram labelled by method.
func MakeMetrics(namespace, subsystem string) (metrics.Counter, metrics.Histogram) {
	counter := register(stdprometheus.NewCounterVec(stdprometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_count",
		Help:      "Number of requests received.",
	}, []string{"method"}))
	latency := register(stdprometheus.NewSummaryVec(stdprometheus.SummaryOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_latency_seconds",
		Help:      "Total duration of requests in seconds.",
	}, []string{"method"}))

	return kitprometheus.NewCounter(counter), kitprometheus.NewSummary(latency)
}

// MakeVariantMetrics returns counters of finished variants and their duration labelled
// by variant and state.
func MakeVariantMetrics(namespace string) (metrics.Counter, metrics.Histogram) {
	counter := register(stdprometheus.NewCounterVec(stdprometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "variants",
		Name:      "total",
		Help:      "Number of processed model variants.",
	}, []string{"variant", "state"}))
	duration := register(stdprometheus.NewHistogramVec(stdprometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "variants",
		Name:      "duration_seconds",
		Help:      "Train and export duration per model variant.",
		Buckets:   []float64{60, 300, 900, 1800, 3600, 7200, 14400, 28800, 57600},
	}, []string{"variant", "state"}))

	return kitprometheus.NewCounter(counter), kitprometheus.NewHistogram(duration)
}

// register adds c to the default registry, or returns the collector already registered
// under the same name so a driver can be built more than once per process.
func register[C stdprometheus.Collector](c C) C {
	err := stdprometheus.Register(c)
	if err == nil {
		return c
	}

	var are stdprometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}

// Push sends every registered metric to a Pushgateway under the given job name.
func Push(ctx context.Context, url, job, instance string) error {
	return push.New(url, job).
		Gatherer(stdprometheus.DefaultGatherer).
		Grouping("instance", instance).
		PushContext(ctx)
}
