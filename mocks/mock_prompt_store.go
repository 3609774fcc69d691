package mocks

import (
	"github.com/stretchr/testify/mock"

	"pcax/internal/port"
)

// MockPromptStore is a mock implementation of port.PromptStore.
type MockPromptStore struct {
	mock.Mock
}

func (m *MockPromptStore) Active() (*port.PromptVersion, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.PromptVersion), args.Error(1)
}

func (m *MockPromptStore) Get(versionID string) (*port.PromptVersion, error) {
	args := m.Called(versionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.PromptVersion), args.Error(1)
}

func (m *MockPromptStore) List() ([]port.PromptVersion, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.PromptVersion), args.Error(1)
}

func (m *MockPromptStore) SetActive(versionID string) error {
	args := m.Called(versionID)
	return args.Error(0)
}
