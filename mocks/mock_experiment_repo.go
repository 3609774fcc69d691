package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pcax/internal/domain"
)

// MockExperimentRepo is a mock implementation of port.ExperimentRepository.
type MockExperimentRepo struct {
	mock.Mock
}

func (m *MockExperimentRepo) SaveExperiment(ctx context.Context, job *domain.Job, rows []domain.ExtractedRow) error {
	args := m.Called(ctx, job, rows)
	return args.Error(0)
}

func (m *MockExperimentRepo) ListExperiments(ctx context.Context, limit int) ([]domain.Job, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Job), args.Error(1)
}

func (m *MockExperimentRepo) GetRows(ctx context.Context, jobID string) ([]domain.ExtractedRow, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExtractedRow), args.Error(1)
}
