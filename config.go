package detlab

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/absmach/detlab/dataset"
	"github.com/absmach/detlab/driver"
	"github.com/absmach/detlab/task"
	"github.com/absmach/detlab/trainer"
	"github.com/pelletier/go-toml"
)

const (
	defModelPrefix = "yolo11"
	defRunSuffix   = "fruit"
	defProject     = "runs/detect"
	defExport      = "coreml"
	defImageSize   = 640
	defEpochs      = 20
)

var (
	errNoVariants        = errors.New("at least one model variant is required")
	errEmptyVariant      = errors.New("empty model variant")
	errDuplicateVariant  = errors.New("duplicate model variant")
	errInvalidBatch      = errors.New("batch size must be positive")
	errInvalidPolicy     = errors.New("train failure policy must be abort or skip")
	errInvalidEpochs     = errors.New("epochs must be positive")
	errMissingExportForm = errors.New("export format is required")
)

type Config struct {
	Profile string        `toml:"profile"`
	Dataset dataset.Ref   `toml:"dataset"`
	Run     RunConfig     `toml:"run"`
	Train   TrainConfig   `toml:"train"`
	Augment AugmentConfig `toml:"augment"`
	Export  ExportConfig  `toml:"export"`
}

type RunConfig struct {
	Variants       []string                  `toml:"variants"`
	ModelPrefix    string                    `toml:"model_prefix"`
	RunSuffix      string                    `toml:"run_suffix"`
	Project        string                    `toml:"project"`
	DefaultBatch   int                       `toml:"default_batch"`
	Batch          map[string]int            `toml:"batch"`
	OnTrainFailure driver.TrainFailurePolicy `toml:"on_train_failure"`
}

type TrainConfig struct {
	Epochs    int    `toml:"epochs"`
	ImageSize int    `toml:"imgsz"`
	Device    string `toml:"device"`
	Workers   int    `toml:"workers"`
	Cache     bool   `toml:"cache"`
	AMP       bool   `toml:"amp"`
	Plots     bool   `toml:"plots"`
	Patience  int    `toml:"patience"`
}

type AugmentConfig struct {
	Enabled bool              `toml:"enabled"`
	Params  task.Augmentation `toml:"params"`
}

type ExportConfig struct {
	Format string `toml:"format"`
	NMS    bool   `toml:"nms"`
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Save writes the config as TOML to path.
func (c Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Dataset.Format == "" {
		c.Dataset.Format = dataset.DefaultFormat
	}
	if c.Run.ModelPrefix == "" {
		c.Run.ModelPrefix = defModelPrefix
	}
	if c.Run.RunSuffix == "" {
		c.Run.RunSuffix = defRunSuffix
	}
	if c.Run.Project == "" {
		c.Run.Project = defProject
	}
	if c.Run.DefaultBatch == 0 {
		c.Run.DefaultBatch = task.DefaultBatchSize
	}
	if c.Run.OnTrainFailure == "" {
		c.Run.OnTrainFailure = driver.AbortOnTrainFailure
	}
	if c.Train.Epochs == 0 {
		c.Train.Epochs = defEpochs
	}
	if c.Train.ImageSize == 0 {
		c.Train.ImageSize = defImageSize
	}
	if c.Export.Format == "" {
		c.Export.Format = defExport
	}
}

func (c Config) Validate() error {
	if err := c.Dataset.Validate(); err != nil {
		return err
	}

	if len(c.Run.Variants) == 0 {
		return errNoVariants
	}
	seen := make([]string, 0, len(c.Run.Variants))
	for _, v := range c.Run.Variants {
		if v == "" {
			return errEmptyVariant
		}
		if slices.Contains(seen, v) {
			return fmt.Errorf("%w: %q", errDuplicateVariant, v)
		}
		seen = append(seen, v)
	}

	if c.Run.DefaultBatch <= 0 {
		return errInvalidBatch
	}
	for v, size := range c.Run.Batch {
		if size <= 0 {
			return fmt.Errorf("%w: %s=%d", errInvalidBatch, v, size)
		}
	}

	switch c.Run.OnTrainFailure {
	case driver.AbortOnTrainFailure, driver.SkipOnTrainFailure:
	default:
		return errInvalidPolicy
	}

	if c.Train.Epochs <= 0 {
		return errInvalidEpochs
	}
	if c.Export.Format == "" {
		return errMissingExportForm
	}

	return nil
}

func (c Config) Variants() []task.Variant {
	return task.ParseVariants(c.Run.Variants)
}

func (c Config) BatchConfig() task.BatchConfig {
	batch := make(task.BatchConfig, len(c.Run.Batch))
	for v, size := range c.Run.Batch {
		batch[task.Variant(v)] = size
	}

	return batch
}

func (c Config) Naming() task.Naming {
	return task.Naming{
		ModelPrefix: c.Run.ModelPrefix,
		RunSuffix:   c.Run.RunSuffix,
		Project:     c.Run.Project,
	}
}

func (c Config) TrainDefaults() task.Defaults {
	d := task.Defaults{
		Epochs:    c.Train.Epochs,
		ImageSize: c.Train.ImageSize,
		Device:    c.Train.Device,
		Workers:   c.Train.Workers,
		Cache:     c.Train.Cache,
		AMP:       c.Train.AMP,
		Plots:     c.Train.Plots,
		Patience:  c.Train.Patience,
	}
	if c.Augment.Enabled {
		augment := c.Augment.Params
		d.Augment = &augment
	}

	return d
}

func (c Config) ExportOptions() trainer.ExportOptions {
	return trainer.ExportOptions{
		Format: c.Export.Format,
		NMS:    c.Export.NMS,
	}
}

// DriverConfig is the part of the configuration the training driver needs at construction.
func (c Config) DriverConfig() driver.Config {
	return driver.Config{
		Profile:        c.Profile,
		Naming:         c.Naming(),
		Export:         c.ExportOptions(),
		DefaultBatch:   c.Run.DefaultBatch,
		OnTrainFailure: c.Run.OnTrainFailure,
	}
}
