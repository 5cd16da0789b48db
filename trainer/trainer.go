package trainer

import (
	"context"

	"github.com/absmach/detlab/task"
)

// Result locates what a training run produced.
type Result struct {
	RunDir  string `json:"run_dir"`
	Weights string `json:"weights"`
}

type ExportOptions struct {
	Format string `json:"format" toml:"format"`
	NMS    bool   `json:"nms"    toml:"nms"`
}

// Trainer runs one blocking training job.
type Trainer interface {
	Train(ctx context.Context, req task.TrainRequest) (Result, error)
}

// Exporter converts trained weights to a deployment format and returns the artifact path.
type Exporter interface {
	Export(ctx context.Context, res Result, opts ExportOptions) (string, error)
}

type Runtime interface {
	Trainer
	Exporter
}
