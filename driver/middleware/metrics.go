package middleware

import (
	"context"
	"time"

	"github.com/absmach/detlab/dataset"
	"github.com/absmach/detlab/driver"
	"github.com/absmach/detlab/job"
	"github.com/absmach/detlab/task"
	"github.com/go-kit/kit/metrics"
)

var _ driver.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter  metrics.Counter
	latency  metrics.Histogram
	variants metrics.Counter
	duration metrics.Histogram
	svc      driver.Service
}

// Metrics records per-method request metrics, and one sample per finished variant
// labelled by its state.
func Metrics(counter metrics.Counter, latency metrics.Histogram, variants metrics.Counter, duration metrics.Histogram, svc driver.Service) driver.Service {
	return &metricsMiddleware{
		counter:  counter,
		latency:  latency,
		variants: variants,
		duration: duration,
		svc:      svc,
	}
}

func (mm *metricsMiddleware) Run(ctx context.Context, loc dataset.Location, variants []task.Variant, batch task.BatchConfig, defaults task.Defaults) ([]task.Outcome, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "run").Add(1)
		mm.latency.With("method", "run").Observe(time.Since(begin).Seconds())
	}(time.Now())

	outcomes, err := mm.svc.Run(ctx, loc, variants, batch, defaults)
	for _, o := range outcomes {
		labels := []string{"variant", string(o.Variant), "state", o.State.String()}
		mm.variants.With(labels...).Add(1)
		mm.duration.With(labels...).Observe(o.FinishTime.Sub(o.StartTime).Seconds())
	}

	return outcomes, err
}

func (mm *metricsMiddleware) Job(ctx context.Context) (job.Job, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "job").Add(1)
		mm.latency.With("method", "job").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Job(ctx)
}

func (mm *metricsMiddleware) Outcome(ctx context.Context, variant task.Variant) (task.Outcome, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "outcome").Add(1)
		mm.latency.With("method", "outcome").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Outcome(ctx, variant)
}

func (mm *metricsMiddleware) Outcomes(ctx context.Context, offset, limit uint64) (task.OutcomePage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "outcomes").Add(1)
		mm.latency.With("method", "outcomes").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Outcomes(ctx, offset, limit)
}
