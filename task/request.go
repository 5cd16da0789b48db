package task

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// Augmentation is the fixed augmentation parameter set handed to the trainer.
type Augmentation struct {
	HSVH        float64 `json:"hsv_h"       toml:"hsv_h"`
	HSVS        float64 `json:"hsv_s"       toml:"hsv_s"`
	HSVV        float64 `json:"hsv_v"       toml:"hsv_v"`
	Degrees     float64 `json:"degrees"     toml:"degrees"`
	Translate   float64 `json:"translate"   toml:"translate"`
	Scale       float64 `json:"scale"       toml:"scale"`
	Shear       float64 `json:"shear"       toml:"shear"`
	Perspective float64 `json:"perspective" toml:"perspective"`
	FlipUD      float64 `json:"flipud"      toml:"flipud"`
	FlipLR      float64 `json:"fliplr"      toml:"fliplr"`
	Mosaic      float64 `json:"mosaic"      toml:"mosaic"`
	Mixup       float64 `json:"mixup"       toml:"mixup"`
	CopyPaste   float64 `json:"copy_paste"  toml:"copy_paste"`
}

func (a Augmentation) args() []string {
	return []string{
		floatArg("hsv_h", a.HSVH),
		floatArg("hsv_s", a.HSVS),
		floatArg("hsv_v", a.HSVV),
		floatArg("degrees", a.Degrees),
		floatArg("translate", a.Translate),
		floatArg("scale", a.Scale),
		floatArg("shear", a.Shear),
		floatArg("perspective", a.Perspective),
		floatArg("flipud", a.FlipUD),
		floatArg("fliplr", a.FlipLR),
		floatArg("mosaic", a.Mosaic),
		floatArg("mixup", a.Mixup),
		floatArg("copy_paste", a.CopyPaste),
	}
}

// Defaults are the training options shared by every variant of a run.
type Defaults struct {
	Epochs    int           `json:"epochs"`
	ImageSize int           `json:"imgsz"`
	Device    string        `json:"device,omitempty"`
	Workers   int           `json:"workers,omitempty"`
	Cache     bool          `json:"cache"`
	AMP       bool          `json:"amp"`
	Plots     bool          `json:"plots"`
	Patience  int           `json:"patience,omitempty"`
	Augment   *Augmentation `json:"augment,omitempty"`
}

// Naming derives weights, run names and output locations from a variant.
type Naming struct {
	ModelPrefix string `json:"model_prefix"`
	RunSuffix   string `json:"run_suffix"`
	Project     string `json:"project"`
}

func (n Naming) Weights(v Variant) string {
	return fmt.Sprintf("%s%s.pt", n.ModelPrefix, v)
}

func (n Naming) RunName(v Variant) string {
	if n.RunSuffix == "" {
		return n.ModelPrefix + string(v)
	}

	return fmt.Sprintf("%s%s_%s", n.ModelPrefix, v, n.RunSuffix)
}

func (n Naming) RunDir(v Variant) string {
	return filepath.Join(n.Project, n.RunName(v))
}

func (n Naming) BestWeights(v Variant) string {
	return filepath.Join(n.RunDir(v), "weights", "best.pt")
}

// ArtifactPath is where the exporter writes the model exported from the best weights.
func (n Naming) ArtifactPath(v Variant, format string) string {
	return filepath.Join(n.RunDir(v), "weights", "best"+artifactSuffix(format))
}

func artifactSuffix(format string) string {
	switch format {
	case "coreml":
		return ".mlpackage"
	case "onnx":
		return ".onnx"
	case "torchscript":
		return ".torchscript"
	case "engine":
		return ".engine"
	case "tflite":
		return "_float32.tflite"
	default:
		return "_" + format + "_model"
	}
}

// TrainRequest is built once per variant and never mutated afterwards.
type TrainRequest struct {
	Variant Variant  `json:"variant"`
	Data    string   `json:"data"`
	Model   string   `json:"model"`
	Name    string   `json:"name"`
	Project string   `json:"project"`
	Batch   int      `json:"batch"`
	Options Defaults `json:"options"`
}

// NewTrainRequest copies defaults so requests of one run share no state.
func NewTrainRequest(data string, v Variant, batch int, naming Naming, defaults Defaults) TrainRequest {
	if defaults.Augment != nil {
		augment := *defaults.Augment
		defaults.Augment = &augment
	}

	return TrainRequest{
		Variant: v,
		Data:    data,
		Model:   naming.Weights(v),
		Name:    naming.RunName(v),
		Project: naming.Project,
		Batch:   batch,
		Options: defaults,
	}
}

// Args renders the request as key=value arguments in a stable order.
func (r TrainRequest) Args() []string {
	args := []string{
		"data=" + r.Data,
		"model=" + r.Model,
		"name=" + r.Name,
		"exist_ok=True",
		"epochs=" + strconv.Itoa(r.Options.Epochs),
		"imgsz=" + strconv.Itoa(r.Options.ImageSize),
		"batch=" + strconv.Itoa(r.Batch),
		boolArg("cache", r.Options.Cache),
		boolArg("amp", r.Options.AMP),
		boolArg("plots", r.Options.Plots),
	}
	if r.Project != "" {
		args = append(args, "project="+r.Project)
	}
	if r.Options.Device != "" {
		args = append(args, "device="+r.Options.Device)
	}
	if r.Options.Workers > 0 {
		args = append(args, "workers="+strconv.Itoa(r.Options.Workers))
	}
	if r.Options.Patience > 0 {
		args = append(args, "patience="+strconv.Itoa(r.Options.Patience))
	}
	if r.Options.Augment != nil {
		args = append(args, r.Options.Augment.args()...)
	}

	return args
}

func boolArg(key string, v bool) string {
	if v {
		return key + "=True"
	}

	return key + "=False"
}

func floatArg(key string, v float64) string {
	return key + "=" + strconv.FormatFloat(v, 'g', -1, 64)
}
