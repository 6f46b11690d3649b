package services

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockDatasetProbe is a testify mock of DatasetProbe
type MockDatasetProbe struct {
	mock.Mock
}

func (m *MockDatasetProbe) Ready() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockDatasetProbe) Stats(ctx context.Context) (LoadSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).(LoadSummary), args.Error(1)
}
