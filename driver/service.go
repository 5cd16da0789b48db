package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/detlab/dataset"
	"github.com/absmach/detlab/job"
	pkgerrors "github.com/absmach/detlab/pkg/errors"
	"github.com/absmach/detlab/pkg/mqtt"
	"github.com/absmach/detlab/pkg/storage"
	"github.com/absmach/detlab/task"
	"github.com/absmach/detlab/trainer"
	smqerrors "github.com/absmach/supermq/pkg/errors"
)

const defTopic = "detlab"

var _ Service = (*service)(nil)

type service struct {
	runtime   trainer.Runtime
	outcomes  storage.Storage
	publisher mqtt.Publisher
	cfg       Config
	logger    *slog.Logger

	mu      sync.Mutex
	current *job.Job
}

// NewService builds the training driver. publisher may be nil.
func NewService(runtime trainer.Runtime, outcomes storage.Storage, publisher mqtt.Publisher, cfg Config, logger *slog.Logger) Service {
	if cfg.DefaultBatch <= 0 {
		cfg.DefaultBatch = task.DefaultBatchSize
	}
	if cfg.OnTrainFailure == "" {
		cfg.OnTrainFailure = AbortOnTrainFailure
	}
	if cfg.Topic == "" {
		cfg.Topic = defTopic
	}

	return &service{
		runtime:   runtime,
		outcomes:  outcomes,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

func (svc *service) Run(ctx context.Context, loc dataset.Location, variants []task.Variant, batch task.BatchConfig, defaults task.Defaults) ([]task.Outcome, error) {
	j := job.New(svc.cfg.Profile, loc.String(), variants)
	svc.setJob(&j)

	outcomes := make([]task.Outcome, 0, len(variants))
	for _, v := range variants {
		if err := ctx.Err(); err != nil {
			return outcomes, svc.finish(ctx, outcomes, err)
		}

		o, err := svc.process(ctx, loc, v, batch, defaults)
		if err != nil {
			return outcomes, svc.finish(ctx, outcomes, err)
		}

		if err := svc.store(ctx, outcomeKey(j.ID, v), o); err != nil {
			return outcomes, svc.finish(ctx, outcomes, fmt.Errorf("failed to record outcome for %s: %w", v, err))
		}
		outcomes = append(outcomes, o)
		svc.record(o)
		svc.notify(ctx, fmt.Sprintf(mqtt.OutcomesTopic, svc.cfg.Topic, j.ID), o)
	}

	return outcomes, svc.finish(ctx, outcomes, nil)
}

// process trains and exports one variant. It only returns an error when the run must stop.
func (svc *service) process(ctx context.Context, loc dataset.Location, v task.Variant, batch task.BatchConfig, defaults task.Defaults) (task.Outcome, error) {
	size := batch.BatchSize(v, svc.cfg.DefaultBatch)
	req := task.NewTrainRequest(loc.Descriptor(), v, size, svc.cfg.Naming, defaults)

	svc.setCurrent(v)
	o := task.Outcome{
		Variant:   v,
		State:     task.Running,
		Batch:     size,
		StartTime: time.Now(),
	}

	svc.logger.Info("Training model variant",
		slog.String("variant", string(v)),
		slog.String("model", req.Model),
		slog.Int("batch", size))

	res, err := svc.runtime.Train(ctx, req)
	if err != nil {
		err = smqerrors.Wrap(ErrTrainFailed, err)
		if svc.cfg.OnTrainFailure == AbortOnTrainFailure {
			return task.Outcome{}, err
		}
		svc.logger.Error("Training failed, skipping variant", slog.String("variant", string(v)), slog.Any("error", err))
		o.Fail(err)

		return o, nil
	}
	o.RunDir = res.RunDir

	svc.logger.Info("Training complete, exporting",
		slog.String("variant", string(v)),
		slog.String("format", svc.cfg.Export.Format),
		slog.Bool("nms", svc.cfg.Export.NMS))

	artifact := svc.cfg.Naming.ArtifactPath(v, svc.cfg.Export.Format)
	reported, err := svc.runtime.Export(ctx, res, svc.cfg.Export)
	if err != nil {
		err = smqerrors.Wrap(ErrExportFailed, err)
		svc.logger.Error("Export failed", slog.String("variant", string(v)), slog.Any("error", err))
		o.Fail(err)

		return o, nil
	}
	if reported != "" && reported != artifact {
		svc.logger.Warn("Exporter wrote to an unexpected location",
			slog.String("variant", string(v)),
			slog.String("expected", artifact),
			slog.String("reported", reported))
	}

	o.Complete(artifact)
	svc.logger.Info("Export complete", slog.String("variant", string(v)), slog.String("artifact", artifact))

	return o, nil
}

func (svc *service) Job(_ context.Context) (job.Job, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.current == nil {
		return job.Job{}, pkgerrors.ErrNoActiveRun
	}

	j := *svc.current
	j.Outcomes = append([]task.Outcome{}, svc.current.Outcomes...)

	return j, nil
}

func (svc *service) Outcome(ctx context.Context, variant task.Variant) (task.Outcome, error) {
	svc.mu.Lock()
	if svc.current == nil {
		svc.mu.Unlock()

		return task.Outcome{}, pkgerrors.ErrNoActiveRun
	}
	id := svc.current.ID
	svc.mu.Unlock()

	v, err := svc.outcomes.Get(ctx, outcomeKey(id, variant))
	if err != nil {
		return task.Outcome{}, err
	}

	o, ok := v.(task.Outcome)
	if !ok {
		return task.Outcome{}, pkgerrors.ErrInvalidData
	}

	return o, nil
}

func (svc *service) Outcomes(ctx context.Context, offset, limit uint64) (task.OutcomePage, error) {
	svc.mu.Lock()
	started := svc.current != nil
	svc.mu.Unlock()
	if !started {
		return task.OutcomePage{}, pkgerrors.ErrNoActiveRun
	}

	values, total, err := svc.outcomes.List(ctx, offset, limit)
	if err != nil {
		return task.OutcomePage{}, err
	}

	outcomes := make([]task.Outcome, 0, len(values))
	for _, v := range values {
		o, ok := v.(task.Outcome)
		if !ok {
			return task.OutcomePage{}, pkgerrors.ErrInvalidData
		}
		outcomes = append(outcomes, o)
	}

	return task.OutcomePage{
		Offset:   offset,
		Limit:    limit,
		Total:    total,
		Outcomes: outcomes,
	}, nil
}

func (svc *service) finish(ctx context.Context, outcomes []task.Outcome, err error) error {
	svc.mu.Lock()
	svc.current.Finish(err)
	j := *svc.current
	svc.mu.Unlock()

	svc.notify(context.WithoutCancel(ctx), fmt.Sprintf(mqtt.JobTopic, svc.cfg.Topic, j.ID), j)

	if err != nil {
		svc.logger.Error("Run stopped",
			slog.String("job", j.ID),
			slog.Int("completed_variants", len(outcomes)),
			slog.Int("planned_variants", len(j.Variants)),
			slog.Any("error", err))
	}

	return err
}

func (svc *service) setJob(j *job.Job) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.current = j
}

func (svc *service) setCurrent(v task.Variant) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.current.Current = v
}

func (svc *service) record(o task.Outcome) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.current.Outcomes = append(svc.current.Outcomes, o)
}

// store keeps the latest outcome of a variant listed more than once.
func (svc *service) store(ctx context.Context, key string, o task.Outcome) error {
	err := svc.outcomes.Create(ctx, key, o)
	if errors.Is(err, pkgerrors.ErrEntityExists) {
		return svc.outcomes.Update(ctx, key, o)
	}

	return err
}

func (svc *service) notify(ctx context.Context, topic string, msg any) {
	if svc.publisher == nil {
		return
	}

	if err := svc.publisher.Publish(ctx, topic, msg); err != nil {
		svc.logger.Warn("Failed to publish notification", slog.String("topic", topic), slog.Any("error", err))
	}
}

func outcomeKey(jobID string, v task.Variant) string {
	return jobID + "/" + string(v)
}
