package mocks

import (
	"context"

	"github.com/absmach/detlab/pkg/mqtt"
	"github.com/stretchr/testify/mock"
)

var _ mqtt.Publisher = (*Publisher)(nil)

// Publisher is a mock implementation of mqtt.Publisher.
type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, topic string, msg any) error {
	args := m.Called(ctx, topic, msg)

	return args.Error(0)
}

func (m *Publisher) Disconnect(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
