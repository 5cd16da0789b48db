package driver

import (
	"context"

	"github.com/absmach/detlab/dataset"
	"github.com/absmach/detlab/job"
	"github.com/absmach/detlab/task"
	"github.com/absmach/detlab/trainer"
	smqerrors "github.com/absmach/supermq/pkg/errors"
)

// TrainFailurePolicy decides what happens to the remaining variants when training fails.
type TrainFailurePolicy string

const (
	// AbortOnTrainFailure stops the run at the first failed training job.
	AbortOnTrainFailure TrainFailurePolicy = "abort"
	// SkipOnTrainFailure records the failure and moves on to the next variant.
	SkipOnTrainFailure TrainFailurePolicy = "skip"
)

var (
	ErrTrainFailed  = smqerrors.New("training failed")
	ErrExportFailed = smqerrors.New("export failed")
)

type Config struct {
	Profile        string
	Naming         task.Naming
	Export         trainer.ExportOptions
	DefaultBatch   int
	OnTrainFailure TrainFailurePolicy
	// Topic prefix for outcome notifications.
	Topic string
}

type Service interface {
	// Run trains and exports every variant in order. Outcomes are returned in input order.
	// A training error under AbortOnTrainFailure ends the run and is returned together with
	// the outcomes recorded so far; export errors never end the run.
	Run(ctx context.Context, loc dataset.Location, variants []task.Variant, batch task.BatchConfig, defaults task.Defaults) ([]task.Outcome, error)

	// Job returns the current or last run.
	Job(ctx context.Context) (job.Job, error)

	// Outcome returns the recorded outcome of a variant in the current or last run.
	Outcome(ctx context.Context, variant task.Variant) (task.Outcome, error)

	// Outcomes lists recorded outcomes. A variant listed more than once keeps the position
	// of its first outcome and the value of its latest.
	Outcomes(ctx context.Context, offset, limit uint64) (task.OutcomePage, error)
}
