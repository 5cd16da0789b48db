package mocks

import (
	"context"

	"github.com/absmach/detlab/dataset"
	"github.com/absmach/detlab/driver"
	"github.com/absmach/detlab/job"
	"github.com/absmach/detlab/task"
	"github.com/stretchr/testify/mock"
)

var _ driver.Service = (*Service)(nil)

// Service is a mock implementation of driver.Service.
type Service struct {
	mock.Mock
}

func (m *Service) Run(ctx context.Context, loc dataset.Location, variants []task.Variant, batch task.BatchConfig, defaults task.Defaults) ([]task.Outcome, error) {
	args := m.Called(ctx, loc, variants, batch, defaults)

	var outcomes []task.Outcome
	if v := args.Get(0); v != nil {
		outcomes = v.([]task.Outcome)
	}

	return outcomes, args.Error(1)
}

func (m *Service) Job(ctx context.Context) (job.Job, error) {
	args := m.Called(ctx)

	return args.Get(0).(job.Job), args.Error(1)
}

func (m *Service) Outcome(ctx context.Context, variant task.Variant) (task.Outcome, error) {
	args := m.Called(ctx, variant)

	return args.Get(0).(task.Outcome), args.Error(1)
}

func (m *Service) Outcomes(ctx context.Context, offset, limit uint64) (task.OutcomePage, error) {
	args := m.Called(ctx, offset, limit)

	return args.Get(0).(task.OutcomePage), args.Error(1)
}
