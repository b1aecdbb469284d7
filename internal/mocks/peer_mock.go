package mocks

import (
	"context"

	"github.com/benmeehan/herd-proxy/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockPeerSender is a mock implementation of the PeerSender interface
type MockPeerSender struct {
	mock.Mock
}

func (m *MockPeerSender) Send(ctx context.Context, addr, line string) error {
	args := m.Called(ctx, addr, line)
	return args.Error(0)
}

// MockPropagator is a mock implementation of the Propagator interface
type MockPropagator struct {
	mock.Mock
}

func (m *MockPropagator) Propagate(msg models.FloodMessage, exclude ...string) int {
	args := m.Called(msg, exclude)
	return args.Int(0)
}
