package mocks

import (
	"context"

	"github.com/absmach/detlab/dataset"
	"github.com/stretchr/testify/mock"
)

var _ dataset.Registry = (*Registry)(nil)

// Registry is a mock implementation of dataset.Registry.
type Registry struct {
	mock.Mock
}

func (m *Registry) Fetch(ctx context.Context, credential string, ref dataset.Ref) (dataset.Location, error) {
	args := m.Called(ctx, credential, ref)

	return args.Get(0).(dataset.Location), args.Error(1)
}
