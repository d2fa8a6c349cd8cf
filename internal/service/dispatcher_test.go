package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/ynakagi/homerelay/internal/domain"
	"github.com/ynakagi/homerelay/internal/switchbot"
)

func textEvent(userID, text string) domain.Event {
	return domain.Event{
		Type:       domain.EventTypeMessage,
		ReplyToken: "reply-token",
		Source:     domain.EventSource{Type: "user", UserID: userID},
		Message:    domain.EventMessage{ID: "msg-1", Type: domain.MessageTypeText, Text: text},
	}
}

func registeredProfile(userID string) *domain.UserProfile {
	return &domain.UserProfile{
		UserID: userID,
		Token:  "token",
		Devices: []domain.Device{
			{DeviceID: "dev-1", DeviceName: "リビングの電気", DeviceType: "Plug"},
			{DeviceID: "dev-2", DeviceName: "お風呂", DeviceType: "Bot"},
		},
	}
}

func TestDispatcher_Follow(t *testing.T) {
	ctx := context.Background()
	ev := domain.Event{
		Type:   domain.EventTypeFollow,
		Source: domain.EventSource{Type: "user", UserID: "U1"},
	}

	t.Run("multi tenant greeting mentions registration", func(t *testing.T) {
		messenger := new(MockMessenger)
		messenger.On("Push", ctx, "U1", []string{msgGreeting}).Return(nil)

		d := NewDispatcher(new(MockProfileRepository), nil, stubClassifier{}, new(MockDeviceGateway), messenger, false)
		d.HandleEvents(ctx, []domain.Event{ev})

		messenger.AssertExpectations(t)
	})

	t.Run("single tenant greeting does not", func(t *testing.T) {
		messenger := new(MockMessenger)
		messenger.On("Push", ctx, "U1", []string{msgGreetingSingle}).Return(nil)

		d := NewDispatcher(new(MockProfileRepository), nil, stubClassifier{}, new(MockDeviceGateway), messenger, true)
		d.HandleEvents(ctx, []domain.Event{ev})

		messenger.AssertExpectations(t)
	})
}

func TestDispatcher_IgnoresNonTextEvents(t *testing.T) {
	ctx := context.Background()
	messenger := new(MockMessenger)
	profiles := new(MockProfileRepository)

	d := NewDispatcher(profiles, nil, stubClassifier{}, new(MockDeviceGateway), messenger, false)
	d.HandleEvents(ctx, []domain.Event{
		{Type: domain.EventTypeMessage, Message: domain.EventMessage{Type: "sticker"}},
		{Type: "unfollow"},
	})

	messenger.AssertNotCalled(t, "Reply", mock.Anything, mock.Anything, mock.Anything)
	messenger.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
	profiles.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestDispatcher_RegistrationKeywords(t *testing.T) {
	ctx := context.Background()

	newDispatcher := func(sessions *MockSessionStore, messenger *MockMessenger) *Dispatcher {
		reg := NewRegistration(sessions, new(MockProfileRepository), new(MockDeviceGateway))
		return NewDispatcher(new(MockProfileRepository), reg, stubClassifier{}, new(MockDeviceGateway), messenger, false)
	}

	t.Run("register keyword starts a session", func(t *testing.T) {
		sessions := new(MockSessionStore)
		sessions.On("Start", ctx, "U1").Return(nil)
		messenger := new(MockMessenger)
		messenger.On("Reply", ctx, "reply-token", []string{msgRegisterPrompt}).Return(nil)

		newDispatcher(sessions, messenger).HandleEvents(ctx, []domain.Event{textEvent("U1", "登録")})

		sessions.AssertExpectations(t)
		messenger.AssertExpectations(t)
	})

	t.Run("keyword matching trims and lowercases", func(t *testing.T) {
		sessions := new(MockSessionStore)
		sessions.On("Start", ctx, "U1").Return(nil)
		messenger := new(MockMessenger)
		messenger.On("Reply", ctx, "reply-token", []string{msgRegisterPrompt}).Return(nil)

		newDispatcher(sessions, messenger).HandleEvents(ctx, []domain.Event{textEvent("U1", "  Register ")})

		sessions.AssertExpectations(t)
	})

	t.Run("cancel keyword clears an active session", func(t *testing.T) {
		sessions := new(MockSessionStore)
		sessions.On("Active", ctx, "U1").Return(true, nil)
		sessions.On("Clear", ctx, "U1").Return(nil)
		messenger := new(MockMessenger)
		messenger.On("Reply", ctx, "reply-token", []string{msgCancelDone}).Return(nil)

		newDispatcher(sessions, messenger).HandleEvents(ctx, []domain.Event{textEvent("U1", "キャンセル")})

		sessions.AssertExpectations(t)
		messenger.AssertExpectations(t)
	})

	t.Run("keywords fall through to the classifier when registration is disabled", func(t *testing.T) {
		profiles := new(MockProfileRepository)
		profiles.On("Get", ctx, "U1").Return(registeredProfile("U1"), nil)
		messenger := new(MockMessenger)
		messenger.On("Reply", ctx, "reply-token", []string{msgClarify}).Return(nil)

		d := NewDispatcher(profiles, nil, stubClassifier{intent: domain.NoneIntent()}, new(MockDeviceGateway), messenger, true)
		d.HandleEvents(ctx, []domain.Event{textEvent("U1", "登録")})

		messenger.AssertExpectations(t)
	})
}

func TestDispatcher_ActiveSessionRoutesToSubmission(t *testing.T) {
	ctx := context.Background()
	token := "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6abcd"

	sessions := new(MockSessionStore)
	sessions.On("Active", ctx, "U1").Return(true, nil)
	sessions.On("Clear", ctx, "U1").Return(nil)

	gateway := new(MockDeviceGateway)
	gateway.On("Devices", ctx, token).Return([]domain.Device{{DeviceID: "d1", DeviceName: "電気"}}, nil)

	profiles := new(MockProfileRepository)
	profiles.On("Upsert", ctx, mock.AnythingOfType("*domain.UserProfile")).Return(nil)

	messenger := new(MockMessenger)
	messenger.On("Reply", ctx, "reply-token", []string{msgRegisterDone(1)}).Return(nil)

	reg := NewRegistration(sessions, profiles, gateway)
	d := NewDispatcher(new(MockProfileRepository), reg, stubClassifier{}, gateway, messenger, false)
	d.HandleEvents(ctx, []domain.Event{textEvent("U1", token)})

	sessions.AssertExpectations(t)
	gateway.AssertExpectations(t)
	profiles.AssertExpectations(t)
	messenger.AssertExpectations(t)
}

func TestDispatcher_UnregisteredUser(t *testing.T) {
	ctx := context.Background()

	newProfiles := func() *MockProfileRepository {
		profiles := new(MockProfileRepository)
		profiles.On("Get", ctx, "U1").Return(nil, domain.ErrNotFound)
		return profiles
	}
	sessions := new(MockSessionStore)
	sessions.On("Active", ctx, "U1").Return(false, nil)

	t.Run("control attempt gets the register prompt", func(t *testing.T) {
		profiles := newProfiles()
		messenger := new(MockMessenger)
		messenger.On("Reply", ctx, "reply-token", []string{msgNeedRegistration}).Return(nil)

		classifier := stubClassifier{intent: domain.Intent{
			Kind:     domain.IntentDeviceControl,
			Commands: []domain.DeviceAction{{Device: "電気", Action: "turnOn"}},
		}}

		reg := NewRegistration(sessions, profiles, new(MockDeviceGateway))
		d := NewDispatcher(profiles, reg, classifier, new(MockDeviceGateway), messenger, false)
		d.HandleEvents(ctx, []domain.Event{textEvent("U1", "電気つけて")})

		messenger.AssertExpectations(t)
	})

	t.Run("question is classified with no devices and answered", func(t *testing.T) {
		profiles := newProfiles()
		messenger := new(MockMessenger)
		messenger.On("Reply", ctx, "reply-token", []string{"Hub経由で登録できます。"}).Return(nil)

		var gotNames []string
		classifier := classifierFunc(func(ctx context.Context, text string, deviceNames []string) domain.Intent {
			gotNames = deviceNames
			return domain.Intent{Kind: domain.IntentSmartHomeHelp, Answer: "Hub経由で登録できます。"}
		})

		reg := NewRegistration(sessions, profiles, new(MockDeviceGateway))
		d := NewDispatcher(profiles, reg, classifier, new(MockDeviceGateway), messenger, false)
		d.HandleEvents(ctx, []domain.Event{textEvent("U1", "加湿器は登録できる？")})

		assert.Empty(t, gotNames)
		messenger.AssertExpectations(t)
	})

	t.Run("small talk gets the clarification", func(t *testing.T) {
		profiles := newProfiles()
		messenger := new(MockMessenger)
		messenger.On("Reply", ctx, "reply-token", []string{msgClarify}).Return(nil)

		reg := NewRegistration(sessions, profiles, new(MockDeviceGateway))
		d := NewDispatcher(profiles, reg, stubClassifier{intent: domain.NoneIntent()}, new(MockDeviceGateway), messenger, false)
		d.HandleEvents(ctx, []domain.Event{textEvent("U1", "こんにちは")})

		messenger.AssertExpectations(t)
	})
}

func TestDispatcher_DeviceControl(t *testing.T) {
	ctx := context.Background()

	t.Run("sends the matched command and confirms", func(t *testing.T) {
		profiles := new(MockProfileRepository)
		profiles.On("Get", ctx, "U1").Return(registeredProfile("U1"), nil)

		gateway := new(MockDeviceGateway)
		gateway.On("Send", ctx, "token", "dev-1", switchbot.TurnCommand("turnOn")).Return(nil)

		messenger := new(MockMessenger)
		messenger.On("Reply", ctx, "reply-token", []string{msgCommandDone("リビングの電気", "turnOn")}).Return(nil)

		classifier := stubClassifier{intent: domain.Intent{
			Kind:     domain.IntentDeviceControl,
			Commands: []domain.DeviceAction{{Device: "リビングの電気", Action: "turnOn"}},
		}}

		d := NewDispatcher(profiles, nil, classifier, gateway, messenger, false)
		d.HandleEvents(ctx, []domain.Event{textEvent("U1", "電気つけて")})

		gateway.AssertExpectations(t)
		messenger.AssertExpectations(t)
	})

	t.Run("reports each command on its own line", func(t *testing.T) {
		profiles := new(MockProfileRepository)
		profiles.On("Get", ctx, "U1").Return(registeredProfile("U1"), nil)

		gateway := new(MockDeviceGateway)
		gateway.On("Send", ctx, "token", "dev-1", switchbot.TurnCommand("turnOff")).Return(nil)
		gateway.On("Send", ctx, "token", "dev-2", switchbot.TurnCommand("turnOn")).Return(errors.New("gateway down"))

		want := msgCommandDone("リビングの電気", "turnOff") + "\n" + msgCommandFailed
		messenger := new(MockMessenger)
		messenger.On("Reply", ctx, "reply-token", []string{want}).Return(nil)

		classifier := stubClassifier{intent: domain.Intent{
			Kind: domain.IntentDeviceControl,
			Commands: []domain.DeviceAction{
				{Device: "リビングの電気", Action: "turnOff"},
				{Device: "お風呂", Action: "turnOn"},
			},
		}}

		d := NewDispatcher(profiles, nil, classifier, gateway, messenger, false)
		d.HandleEvents(ctx, []domain.Event{textEvent("U1", "全部消して")})

		gateway.AssertExpectations(t)
		messenger.AssertExpectations(t)
	})

	t.Run("device name matching is exact", func(t *testing.T) {
		profiles := new(MockProfileRepository)
		profiles.On("Get", ctx, "U1").Return(registeredProfile("U1"), nil)

		gateway := new(MockDeviceGateway)
		messenger := new(MockMessenger)
		messenger.On("Reply", ctx, "reply-token", []string{msgNoDeviceMatched}).Return(nil)

		classifier := stubClassifier{intent: domain.Intent{
			Kind:     domain.IntentDeviceControl,
			Commands: []domain.DeviceAction{{Device: "りびんぐの電気", Action: "turnOn"}},
		}}

		d := NewDispatcher(profiles, nil, classifier, gateway, messenger, false)
		d.HandleEvents(ctx, []domain.Event{textEvent("U1", "電気つけて")})

		gateway.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		messenger.AssertExpectations(t)
	})
}

func TestDispatcher_HelpAndClarify(t *testing.T) {
	ctx := context.Background()

	t.Run("help answer is relayed verbatim", func(t *testing.T) {
		profiles := new(MockProfileRepository)
		profiles.On("Get", ctx, "U1").Return(registeredProfile("U1"), nil)
		messenger := new(MockMessenger)
		messenger.On("Reply", ctx, "reply-token", []string{"加湿器はHub経由で登録できます。"}).Return(nil)

		classifier := stubClassifier{intent: domain.Intent{
			Kind:   domain.IntentSmartHomeHelp,
			Answer: "加湿器はHub経由で登録できます。",
		}}

		d := NewDispatcher(profiles, nil, classifier, new(MockDeviceGateway), messenger, false)
		d.HandleEvents(ctx, []domain.Event{textEvent("U1", "加湿器は登録できる？")})

		messenger.AssertExpectations(t)
	})

	t.Run("none intent asks for clarification", func(t *testing.T) {
		profiles := new(MockProfileRepository)
		profiles.On("Get", ctx, "U1").Return(registeredProfile("U1"), nil)
		messenger := new(MockMessenger)
		messenger.On("Reply", ctx, "reply-token", []string{msgClarify}).Return(nil)

		d := NewDispatcher(profiles, nil, stubClassifier{intent: domain.NoneIntent()}, new(MockDeviceGateway), messenger, false)
		d.HandleEvents(ctx, []domain.Event{textEvent("U1", "こんにちは")})

		messenger.AssertExpectations(t)
	})
}

func TestDispatcher_EventFailureDoesNotStopBatch(t *testing.T) {
	ctx := context.Background()

	profiles := new(MockProfileRepository)
	profiles.On("Get", ctx, "U1").Return(registeredProfile("U1"), nil)
	profiles.On("Get", ctx, "U2").Return(registeredProfile("U2"), nil)

	messenger := new(MockMessenger)
	messenger.On("Reply", ctx, "reply-token", []string{msgClarify}).
		Return(errors.New("reply failed")).Once()
	messenger.On("Reply", ctx, "reply-token", []string{msgClarify}).
		Return(nil).Once()

	d := NewDispatcher(profiles, nil, stubClassifier{intent: domain.NoneIntent()}, new(MockDeviceGateway), messenger, false)
	d.HandleEvents(ctx, []domain.Event{textEvent("U1", "a"), textEvent("U2", "b")})

	messenger.AssertNumberOfCalls(t, "Reply", 2)
}

func TestDispatcher_ProfileLookupFailureStillAnswers(t *testing.T) {
	ctx := context.Background()

	profiles := new(MockProfileRepository)
	profiles.On("Get", ctx, "U1").Return(nil, errors.New("store down"))

	messenger := new(MockMessenger)
	messenger.On("Reply", ctx, "reply-token", []string{"answer"}).Return(nil)

	classifier := stubClassifier{intent: domain.Intent{Kind: domain.IntentSmartHomeHelp, Answer: "answer"}}
	d := NewDispatcher(profiles, nil, classifier, new(MockDeviceGateway), messenger, false)
	d.HandleEvents(ctx, []domain.Event{textEvent("U1", "質問")})

	messenger.AssertExpectations(t)
}

func TestDispatcher_ControlWithoutTokenAsksForRegistration(t *testing.T) {
	ctx := context.Background()

	profiles := new(MockProfileRepository)
	profiles.On("Get", ctx, "U1").Return(&domain.UserProfile{UserID: "U1"}, nil)

	messenger := new(MockMessenger)
	messenger.On("Reply", ctx, "reply-token", []string{msgNeedRegistration}).Return(nil)

	classifier := stubClassifier{intent: domain.Intent{
		Kind:     domain.IntentDeviceControl,
		Commands: []domain.DeviceAction{{Device: "電気", Action: "turnOn"}},
	}}

	d := NewDispatcher(profiles, nil, classifier, new(MockDeviceGateway), messenger, false)
	d.HandleEvents(ctx, []domain.Event{textEvent("U1", "電気つけて")})

	messenger.AssertExpectations(t)
}

func TestDispatcher_DeviceNamesPassedToClassifier(t *testing.T) {
	ctx := context.Background()

	profiles := new(MockProfileRepository)
	profiles.On("Get", ctx, "U1").Return(registeredProfile("U1"), nil)

	messenger := new(MockMessenger)
	messenger.On("Reply", ctx, "reply-token", mock.Anything).Return(nil)

	var got []string
	classifier := classifierFunc(func(ctx context.Context, text string, deviceNames []string) domain.Intent {
		got = deviceNames
		return domain.NoneIntent()
	})

	d := NewDispatcher(profiles, nil, classifier, new(MockDeviceGateway), messenger, false)
	d.HandleEvents(ctx, []domain.Event{textEvent("U1", "電気つけて")})

	assert.Equal(t, []string{"リビングの電気", "お風呂"}, got)
}

type classifierFunc func(ctx context.Context, text string, deviceNames []string) domain.Intent

func (f classifierFunc) Classify(ctx context.Context, text string, deviceNames []string) domain.Intent {
	return f(ctx, text, deviceNames)
}
