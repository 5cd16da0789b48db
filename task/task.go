package task

import (
	"encoding/json"
	"time"
)

// DefaultBatchSize is used for any variant missing from a BatchConfig.
const DefaultBatchSize = 16

type State uint8

const (
	Pending State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Variant is a pretrained model size token such as "n", "s", "m", "l" or "x".
type Variant string

func ParseVariants(tokens []string) []Variant {
	variants := make([]Variant, 0, len(tokens))
	for _, t := range tokens {
		variants = append(variants, Variant(t))
	}

	return variants
}

// BatchConfig maps variants to batch sizes. It is read-only for the duration of a run.
type BatchConfig map[Variant]int

// BatchSize returns the configured batch size for v, or def when v is not configured.
func (b BatchConfig) BatchSize(v Variant, def int) int {
	if size, ok := b[v]; ok {
		return size
	}

	return def
}

// Outcome is the per-variant result of a run.
type Outcome struct {
	Variant    Variant   `json:"variant"`
	State      State     `json:"state"`
	Batch      int       `json:"batch"`
	RunDir     string    `json:"run_dir,omitempty"`
	Artifact   string    `json:"artifact,omitempty"`
	Error      string    `json:"error,omitempty"`
	Err        error     `json:"-"`
	StartTime  time.Time `json:"start_time"`
	FinishTime time.Time `json:"finish_time"`
}

// OutcomePage is a page of recorded outcomes in the order they were first recorded.
type OutcomePage struct {
	Offset   uint64    `json:"offset"`
	Limit    uint64    `json:"limit"`
	Total    uint64    `json:"total"`
	Outcomes []Outcome `json:"outcomes"`
}

func (o *Outcome) Fail(err error) {
	o.State = Failed
	o.Err = err
	o.Error = err.Error()
	o.FinishTime = time.Now()
}

func (o *Outcome) Complete(artifact string) {
	o.State = Completed
	o.Artifact = artifact
	o.FinishTime = time.Now()
}
