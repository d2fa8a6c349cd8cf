package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/ynakagi/homerelay/internal/domain"
	"github.com/ynakagi/homerelay/internal/switchbot"
)

// Messenger is the outbound side of the chat platform.
type Messenger interface {
	Reply(ctx context.Context, replyToken string, texts ...string) error
	Push(ctx context.Context, userID string, texts ...string) error
}

// Dispatcher routes incoming webhook events. Text messages go through the
// keyword rules, then the registration session check, then the classifier.
// Follow events get a greeting pushed. Every event produces at most one
// reply, and a failing event never stops the ones after it.
type Dispatcher struct {
	profiles     domain.ProfileRepository
	registration *Registration // nil when registration is disabled
	classifier   Classifier
	gateway      DeviceGateway
	messenger    Messenger
	singleTenant bool
}

func NewDispatcher(
	profiles domain.ProfileRepository,
	registration *Registration,
	classifier Classifier,
	gateway DeviceGateway,
	messenger Messenger,
	singleTenant bool,
) *Dispatcher {
	return &Dispatcher{
		profiles:     profiles,
		registration: registration,
		classifier:   classifier,
		gateway:      gateway,
		messenger:    messenger,
		singleTenant: singleTenant,
	}
}

// HandleEvents processes a webhook batch strictly in order. Per-event
// failures are logged and swallowed.
func (d *Dispatcher) HandleEvents(ctx context.Context, events []domain.Event) {
	batchID := uuid.NewString()
	for i, ev := range events {
		if err := d.safeHandleEvent(ctx, ev); err != nil {
			log.Error().
				Err(err).
				Str("batch_id", batchID).
				Int("event_index", i).
				Str("event_type", ev.Type).
				Msg("event handling failed")
		}
	}
}

func (d *Dispatcher) safeHandleEvent(ctx context.Context, ev domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while handling event: %v", r)
		}
	}()
	return d.handleEvent(ctx, ev)
}

func (d *Dispatcher) handleEvent(ctx context.Context, ev domain.Event) error {
	switch {
	case ev.Type == domain.EventTypeFollow:
		return d.handleFollow(ctx, ev)
	case ev.IsText():
		return d.handleText(ctx, ev)
	default:
		log.Debug().Str("event_type", ev.Type).Msg("ignoring event")
		return nil
	}
}

func (d *Dispatcher) handleFollow(ctx context.Context, ev domain.Event) error {
	greeting := msgGreeting
	if d.singleTenant {
		greeting = msgGreetingSingle
	}
	return d.messenger.Push(ctx, ev.Source.UserID, greeting)
}

func (d *Dispatcher) handleText(ctx context.Context, ev domain.Event) error {
	userID := ev.Source.UserID
	text := ev.Message.Text
	keyword := strings.ToLower(strings.TrimSpace(text))

	if d.registration != nil {
		switch keyword {
		case registerKeywordJA, registerKeywordEN:
			return d.messenger.Reply(ctx, ev.ReplyToken, d.registration.Begin(ctx, userID))
		case cancelKeywordJA, cancelKeywordEN:
			return d.messenger.Reply(ctx, ev.ReplyToken, d.registration.Cancel(ctx, userID))
		}
		if d.registration.Active(ctx, userID) {
			return d.messenger.Reply(ctx, ev.ReplyToken, d.registration.Submit(ctx, userID, text))
		}
	}

	profile, err := d.profiles.Get(ctx, userID)
	if err != nil {
		// No profile (or a failing lookup) degrades to an empty one: the
		// classifier still runs so questions get answered, and the control
		// branch prompts for registration when there is no credential.
		if err != domain.ErrNotFound {
			log.Error().Err(err).Str("user_id", userID).Msg("profile lookup failed")
		}
		profile = &domain.UserProfile{UserID: userID}
	}

	names := make([]string, 0, len(profile.Devices))
	for _, dev := range profile.Devices {
		names = append(names, dev.DeviceName)
	}

	intent := d.classifier.Classify(ctx, text, names)

	switch intent.Kind {
	case domain.IntentDeviceControl:
		return d.messenger.Reply(ctx, ev.ReplyToken, d.controlDevices(ctx, profile, intent.Commands))
	case domain.IntentSmartHomeHelp:
		return d.messenger.Reply(ctx, ev.ReplyToken, intent.Answer)
	default:
		return d.messenger.Reply(ctx, ev.ReplyToken, msgClarify)
	}
}

// controlDevices dispatches each requested action against the user's devices
// and builds a per-command reply. Unknown device names and gateway failures
// report per line without aborting the rest of the batch.
func (d *Dispatcher) controlDevices(ctx context.Context, profile *domain.UserProfile, commands []domain.DeviceAction) string {
	if profile.Token == "" {
		return msgNeedRegistration
	}

	lines := make([]string, 0, len(commands))
	for _, cmd := range commands {
		dev, ok := profile.FindDevice(cmd.Device)
		if !ok {
			log.Debug().Str("device", cmd.Device).Msg("no matching device")
			lines = append(lines, msgNoDeviceMatched)
			continue
		}
		if err := d.gateway.Send(ctx, profile.Token, dev.DeviceID, switchbot.TurnCommand(cmd.Action)); err != nil {
			log.Warn().
				Err(err).
				Str("device_id", dev.DeviceID).
				Str("action", cmd.Action).
				Msg("device command failed")
			lines = append(lines, msgCommandFailed)
			continue
		}
		log.Info().
			Str("device_id", dev.DeviceID).
			Str("device_name", dev.DeviceName).
			Str("action", cmd.Action).
			Msg("device command sent")
		lines = append(lines, msgCommandDone(dev.DeviceName, cmd.Action))
	}
	return strings.Join(lines, "\n")
}
