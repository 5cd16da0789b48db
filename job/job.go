package job

import (
	"time"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/detlab/task"
	"github.com/google/uuid"
)

var namegen = namegenerator.NewGenerator()

// Job groups the per-variant outcomes of one training run.
type Job struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Profile    string         `json:"profile,omitempty"`
	Dataset    string         `json:"dataset"`
	Variants   []task.Variant `json:"variants"`
	Current    task.Variant   `json:"current,omitempty"`
	State      task.State     `json:"state"`
	Outcomes   []task.Outcome `json:"outcomes"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

func New(profile, dataset string, variants []task.Variant) Job {
	return Job{
		ID:        uuid.NewString(),
		Name:      namegen.Generate(),
		Profile:   profile,
		Dataset:   dataset,
		Variants:  variants,
		State:     task.Running,
		Outcomes:  []task.Outcome{},
		StartedAt: time.Now(),
	}
}

func (j *Job) Finish(err error) {
	j.Current = ""
	j.FinishedAt = time.Now()
	if err != nil {
		j.Error = err.Error()
	}
	j.State = ComputeState(j.Outcomes, len(j.Variants), true)
}

// ComputeState derives the run state from its outcomes. A finished run with fewer
// outcomes than planned variants was aborted and is reported as Failed.
func ComputeState(outcomes []task.Outcome, planned int, finished bool) task.State {
	if !finished {
		if len(outcomes) == 0 {
			return task.Pending
		}

		return task.Running
	}

	if len(outcomes) < planned {
		return task.Failed
	}
	for _, o := range outcomes {
		if o.State != task.Completed {
			return task.Failed
		}
	}

	return task.Completed
}
