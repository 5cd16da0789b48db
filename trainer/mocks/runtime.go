package mocks

import (
	"context"

	"github.com/absmach/detlab/task"
	"github.com/absmach/detlab/trainer"
	"github.com/stretchr/testify/mock"
)

var _ trainer.Runtime = (*Runtime)(nil)

// Runtime is a mock implementation of trainer.Runtime.
type Runtime struct {
	mock.Mock
}

func (m *Runtime) Train(ctx context.Context, req task.TrainRequest) (trainer.Result, error) {
	args := m.Called(ctx, req)

	return args.Get(0).(trainer.Result), args.Error(1)
}

func (m *Runtime) Export(ctx context.Context, res trainer.Result, opts trainer.ExportOptions) (string, error) {
	args := m.Called(ctx, res, opts)

	return args.String(0), args.Error(1)
}
