package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"raid-service/internal/rabbitmq"
)

// PublisherMock stands in for the push notification publisher.
type PublisherMock struct {
	mock.Mock
}

var _ rabbitmq.Publisher = (*PublisherMock)(nil)

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
