package service

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/ynakagi/homerelay/internal/domain"
	"github.com/ynakagi/homerelay/internal/switchbot"
)

// MockProfileRepository mocks the ProfileRepository interface
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProfile), args.Error(1)
}

func (m *MockProfileRepository) Upsert(ctx context.Context, profile *domain.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

// MockSessionStore mocks the SessionStore interface
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Start(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockSessionStore) Active(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionStore) Clear(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockDeviceGateway mocks the DeviceGateway interface
type MockDeviceGateway struct {
	mock.Mock
}

func (m *MockDeviceGateway) Devices(ctx context.Context, token string) ([]domain.Device, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Device), args.Error(1)
}

func (m *MockDeviceGateway) Send(ctx context.Context, token, deviceID string, cmd switchbot.Command) error {
	args := m.Called(ctx, token, deviceID, cmd)
	return args.Error(0)
}

// MockMessenger mocks the Messenger interface
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) Reply(ctx context.Context, replyToken string, texts ...string) error {
	args := m.Called(ctx, replyToken, texts)
	return args.Error(0)
}

func (m *MockMessenger) Push(ctx context.Context, userID string, texts ...string) error {
	args := m.Called(ctx, userID, texts)
	return args.Error(0)
}

// stubClassifier always returns a fixed intent
type stubClassifier struct {
	intent domain.Intent
}

func (s stubClassifier) Classify(ctx context.Context, text string, deviceNames []string) domain.Intent {
	return s.intent
}
