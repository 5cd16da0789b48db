package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/detlab/dataset"
	"github.com/absmach/detlab/driver"
	"github.com/absmach/detlab/job"
	"github.com/absmach/detlab/task"
)

var _ driver.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    driver.Service
}

func Logging(logger *slog.Logger, svc driver.Service) driver.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Run(ctx context.Context, loc dataset.Location, variants []task.Variant, batch task.BatchConfig, defaults task.Defaults) (outcomes []task.Outcome, err error) {
	defer func(begin time.Time) {
		failed := 0
		for _, o := range outcomes {
			if o.State == task.Failed {
				failed++
			}
		}
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("dataset", loc.String()),
				slog.Int("planned", len(variants)),
				slog.Int("finished", len(outcomes)),
				slog.Int("failed", failed),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Training run failed", args...)

			return
		}
		lm.logger.Info("Training run completed", args...)
	}(time.Now())

	return lm.svc.Run(ctx, loc, variants, batch, defaults)
}

func (lm *loggingMiddleware) Job(ctx context.Context) (j job.Job, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("job",
				slog.String("id", j.ID),
				slog.String("name", j.Name),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get job failed", args...)

			return
		}
		lm.logger.Debug("Get job completed successfully", args...)
	}(time.Now())

	return lm.svc.Job(ctx)
}

func (lm *loggingMiddleware) Outcome(ctx context.Context, variant task.Variant) (o task.Outcome, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("variant", string(variant)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get outcome failed", args...)

			return
		}
		lm.logger.Debug("Get outcome completed successfully", args...)
	}(time.Now())

	return lm.svc.Outcome(ctx, variant)
}

func (lm *loggingMiddleware) Outcomes(ctx context.Context, offset, limit uint64) (page task.OutcomePage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("page",
				slog.Uint64("offset", offset),
				slog.Uint64("limit", limit),
				slog.Uint64("total", page.Total),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List outcomes failed", args...)

			return
		}
		lm.logger.Debug("List outcomes completed successfully", args...)
	}(time.Now())

	return lm.svc.Outcomes(ctx, offset, limit)
}
