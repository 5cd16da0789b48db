package middleware

import (
	"context"

	"github.com/absmach/detlab/dataset"
	"github.com/absmach/detlab/driver"
	"github.com/absmach/detlab/job"
	"github.com/absmach/detlab/task"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ driver.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    driver.Service
}

func Tracing(tracer trace.Tracer, svc driver.Service) driver.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Run(ctx context.Context, loc dataset.Location, variants []task.Variant, batch task.BatchConfig, defaults task.Defaults) (outcomes []task.Outcome, err error) {
	names := make([]string, len(variants))
	for i, v := range variants {
		names[i] = string(v)
	}

	ctx, span := tm.tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.String("dataset", loc.String()),
		attribute.StringSlice("variants", names),
		attribute.Int("epochs", defaults.Epochs),
		attribute.Int("imgsz", defaults.ImageSize),
	))
	defer func() {
		for _, o := range outcomes {
			span.AddEvent("variant", trace.WithAttributes(
				attribute.String("variant", string(o.Variant)),
				attribute.String("state", o.State.String()),
				attribute.Int("batch", o.Batch),
			))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	return tm.svc.Run(ctx, loc, variants, batch, defaults)
}

func (tm *tracing) Job(ctx context.Context) (job.Job, error) {
	ctx, span := tm.tracer.Start(ctx, "job")
	defer span.End()

	return tm.svc.Job(ctx)
}

func (tm *tracing) Outcome(ctx context.Context, variant task.Variant) (task.Outcome, error) {
	ctx, span := tm.tracer.Start(ctx, "outcome", trace.WithAttributes(
		attribute.String("variant", string(variant)),
	))
	defer span.End()

	return tm.svc.Outcome(ctx, variant)
}

func (tm *tracing) Outcomes(ctx context.Context, offset, limit uint64) (task.OutcomePage, error) {
	ctx, span := tm.tracer.Start(ctx, "outcomes", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.Outcomes(ctx, offset, limit)
}
