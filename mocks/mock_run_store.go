package mocks

import (
	"github.com/stretchr/testify/mock"

	"pcax/internal/domain"
)

// MockRunStore is a mock implementation of port.RunStore.
type MockRunStore struct {
	mock.Mock
}

func (m *MockRunStore) CreateRun() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockRunStore) SaveChunkText(runRef string, chunk domain.Chunk) error {
	args := m.Called(runRef, chunk)
	return args.Error(0)
}

func (m *MockRunStore) SaveRawResponse(runRef string, chunkIndex, attempt int, raw string) error {
	args := m.Called(runRef, chunkIndex, attempt, raw)
	return args.Error(0)
}

func (m *MockRunStore) SavePartialRows(runRef string, rows []domain.ExtractedRow) error {
	args := m.Called(runRef, rows)
	return args.Error(0)
}

func (m *MockRunStore) SaveFinalRows(runRef string, rows []domain.ExtractedRow) error {
	args := m.Called(runRef, rows)
	return args.Error(0)
}

func (m *MockRunStore) LoadFinalRows(runRef string) ([]domain.ExtractedRow, error) {
	args := m.Called(runRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExtractedRow), args.Error(1)
}

func (m *MockRunStore) SaveMetadata(runRef string, meta map[string]any) error {
	args := m.Called(runRef, meta)
	return args.Error(0)
}

func (m *MockRunStore) SaveEvaluation(runRef string, report *domain.EvalReport) error {
	args := m.Called(runRef, report)
	return args.Error(0)
}

func (m *MockRunStore) FinalCSVPath(runRef string) string {
	args := m.Called(runRef)
	return args.String(0)
}
