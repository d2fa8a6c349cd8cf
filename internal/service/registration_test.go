package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/ynakagi/homerelay/internal/domain"
)

const validToken = "0f3a9c7b1d5e8f2a6c4b0d9e7f1a3c5b8d2e6f0a4c7b9d1e3f5a8c2b6d4e0f7abd"

func TestRegistration_Begin(t *testing.T) {
	ctx := context.Background()

	t.Run("starts a session", func(t *testing.T) {
		sessions := new(MockSessionStore)
		sessions.On("Start", ctx, "U1").Return(nil)

		reg := NewRegistration(sessions, new(MockProfileRepository), new(MockDeviceGateway))
		assert.Equal(t, msgRegisterPrompt, reg.Begin(ctx, "U1"))

		sessions.AssertExpectations(t)
	})

	t.Run("reports store failure", func(t *testing.T) {
		sessions := new(MockSessionStore)
		sessions.On("Start", ctx, "U1").Return(errors.New("redis down"))

		reg := NewRegistration(sessions, new(MockProfileRepository), new(MockDeviceGateway))
		assert.Equal(t, msgPersistFailed, reg.Begin(ctx, "U1"))
	})
}

func TestRegistration_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("clears an active session", func(t *testing.T) {
		sessions := new(MockSessionStore)
		sessions.On("Active", ctx, "U1").Return(true, nil)
		sessions.On("Clear", ctx, "U1").Return(nil)

		reg := NewRegistration(sessions, new(MockProfileRepository), new(MockDeviceGateway))
		assert.Equal(t, msgCancelDone, reg.Cancel(ctx, "U1"))

		sessions.AssertExpectations(t)
	})

	t.Run("nothing to cancel", func(t *testing.T) {
		sessions := new(MockSessionStore)
		sessions.On("Active", ctx, "U1").Return(false, nil)

		reg := NewRegistration(sessions, new(MockProfileRepository), new(MockDeviceGateway))
		assert.Equal(t, msgCancelNothing, reg.Cancel(ctx, "U1"))

		sessions.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	})
}

func TestRegistration_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects malformed tokens without calling the gateway", func(t *testing.T) {
		sessions := new(MockSessionStore)
		gateway := new(MockDeviceGateway)
		reg := NewRegistration(sessions, new(MockProfileRepository), gateway)

		for _, bad := range []string{
			"",
			"short",
			strings.Repeat("a", 60),
			strings.Repeat("a", 60) + "!",
		} {
			assert.Equal(t, msgTokenInvalid, reg.Submit(ctx, "U1", bad))
		}

		gateway.AssertNotCalled(t, "Devices", mock.Anything, mock.Anything)
		sessions.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	})

	t.Run("trims surrounding whitespace before validating", func(t *testing.T) {
		sessions := new(MockSessionStore)
		sessions.On("Clear", ctx, "U1").Return(nil)
		gateway := new(MockDeviceGateway)
		gateway.On("Devices", ctx, validToken).Return([]domain.Device{}, nil)
		profiles := new(MockProfileRepository)
		profiles.On("Upsert", ctx, mock.AnythingOfType("*domain.UserProfile")).Return(nil)

		reg := NewRegistration(sessions, profiles, gateway)
		assert.Equal(t, msgRegisterDone(0), reg.Submit(ctx, "U1", "  "+validToken+"\n"))

		gateway.AssertExpectations(t)
	})

	t.Run("keeps the session open when enumeration fails", func(t *testing.T) {
		sessions := new(MockSessionStore)
		gateway := new(MockDeviceGateway)
		gateway.On("Devices", ctx, validToken).Return(nil, errors.New("401"))

		reg := NewRegistration(sessions, new(MockProfileRepository), gateway)
		assert.Equal(t, msgEnumerateFailed, reg.Submit(ctx, "U1", validToken))

		sessions.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	})

	t.Run("keeps the session open when persistence fails", func(t *testing.T) {
		sessions := new(MockSessionStore)
		gateway := new(MockDeviceGateway)
		gateway.On("Devices", ctx, validToken).Return([]domain.Device{{DeviceID: "d1", DeviceName: "電気"}}, nil)
		profiles := new(MockProfileRepository)
		profiles.On("Upsert", ctx, mock.Anything).Return(errors.New("mongo down"))

		reg := NewRegistration(sessions, profiles, gateway)
		assert.Equal(t, msgPersistFailed, reg.Submit(ctx, "U1", validToken))

		sessions.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	})

	t.Run("persists the profile and closes the session", func(t *testing.T) {
		devices := []domain.Device{
			{DeviceID: "d1", DeviceName: "電気", DeviceType: "Plug"},
			{DeviceID: "d2", DeviceName: "お風呂", DeviceType: "Bot"},
		}

		sessions := new(MockSessionStore)
		sessions.On("Clear", ctx, "U1").Return(nil)
		gateway := new(MockDeviceGateway)
		gateway.On("Devices", ctx, validToken).Return(devices, nil)

		profiles := new(MockProfileRepository)
		profiles.On("Upsert", ctx, mock.MatchedBy(func(p *domain.UserProfile) bool {
			return p.UserID == "U1" && p.Token == validToken && len(p.Devices) == 2
		})).Return(nil)

		reg := NewRegistration(sessions, profiles, gateway)
		assert.Equal(t, msgRegisterDone(2), reg.Submit(ctx, "U1", validToken))

		sessions.AssertExpectations(t)
		profiles.AssertExpectations(t)
	})
}
