package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pcax/internal/domain"
	"pcax/internal/port"
)

// MockChunkExtractor is a mock implementation of port.ChunkExtractor.
type MockChunkExtractor struct {
	mock.Mock
}

func (m *MockChunkExtractor) Extract(ctx context.Context, input port.ExtractInput) ([]domain.ExtractedRow, string, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]domain.ExtractedRow), args.String(1), args.Error(2)
}
