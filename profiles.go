package detlab

import (
	"errors"
	"maps"
	"slices"

	"github.com/absmach/detlab/dataset"
	"github.com/absmach/detlab/driver"
	"github.com/absmach/detlab/task"
)

const DefaultProfile = "a100"

var ErrUnknownProfile = errors.New("unknown profile")

var fruitsDataset = dataset.Ref{
	Workspace: "yolo-jpkho",
	Project:   "combined-vegetables-fruits",
	Version:   1,
	Format:    dataset.DefaultFormat,
}

var profiles = map[string]func() Config{
	// Apple silicon laptop: Metal backend, no per-size batch table.
	"mps": func() Config {
		return Config{
			Profile: "mps",
			Dataset: fruitsDataset,
			Run: RunConfig{
				Variants:       []string{"s", "m", "l"},
				ModelPrefix:    "yolo11",
				RunSuffix:      defRunSuffix,
				Project:        defProject,
				DefaultBatch:   task.DefaultBatchSize,
				Batch:          map[string]int{},
				OnTrainFailure: driver.AbortOnTrainFailure,
			},
			Train: TrainConfig{
				Epochs:    20,
				ImageSize: defImageSize,
				Device:    "mps",
				Workers:   8,
				Cache:     false,
				AMP:       true,
				Plots:     true,
			},
			Export: ExportConfig{Format: defExport, NMS: true},
		}
	},
	// 40GB A100: large batches, RAM caching and the augmentation set.
	"a100": func() Config {
		return Config{
			Profile: "a100",
			Dataset: fruitsDataset,
			Run: RunConfig{
				Variants:       []string{"s", "m", "l"},
				ModelPrefix:    "yolo11",
				RunSuffix:      defRunSuffix,
				Project:        defProject,
				DefaultBatch:   task.DefaultBatchSize,
				Batch:          map[string]int{"s": 128, "m": 48, "l": 32},
				OnTrainFailure: driver.AbortOnTrainFailure,
			},
			Train: TrainConfig{
				Epochs:    100,
				ImageSize: defImageSize,
				Device:    "0",
				Workers:   16,
				Cache:     true,
				AMP:       true,
				Plots:     true,
				Patience:  20,
			},
			Augment: AugmentConfig{
				Enabled: true,
				Params: task.Augmentation{
					HSVH:        0.015,
					HSVS:        0.7,
					HSVV:        0.4,
					Degrees:     15.0,
					Translate:   0.1,
					Scale:       0.5,
					Shear:       2.0,
					Perspective: 0.0001,
					FlipUD:      0.0,
					FlipLR:      0.5,
					Mosaic:      1.0,
					Mixup:       0.1,
					CopyPaste:   0.1,
				},
			},
			Export: ExportConfig{Format: defExport, NMS: true},
		}
	},
	// 15GB T4 with the attention based yolo12 family.
	"t4-yolo12": func() Config {
		return Config{
			Profile: "t4-yolo12",
			Dataset: fruitsDataset,
			Run: RunConfig{
				Variants:       []string{"s", "m", "l"},
				ModelPrefix:    "yolo12",
				RunSuffix:      defRunSuffix,
				Project:        defProject,
				DefaultBatch:   task.DefaultBatchSize,
				Batch:          map[string]int{"s": 32, "m": 16, "l": 16},
				OnTrainFailure: driver.AbortOnTrainFailure,
			},
			Train: TrainConfig{
				Epochs:    20,
				ImageSize: defImageSize,
				Device:    "0",
				Workers:   2,
				Cache:     false,
				AMP:       true,
				Plots:     true,
			},
			Export: ExportConfig{Format: defExport, NMS: true},
		}
	},
}

// Profile returns a fresh copy of a built-in configuration.
func Profile(name string) (Config, error) {
	p, ok := profiles[name]
	if !ok {
		return Config{}, ErrUnknownProfile
	}

	return p(), nil
}

func Profiles() []string {
	return slices.Sorted(maps.Keys(profiles))
}
