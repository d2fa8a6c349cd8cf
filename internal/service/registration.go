package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/ynakagi/homerelay/internal/domain"
	"github.com/ynakagi/homerelay/internal/switchbot"
)

// DeviceGateway is the slice of the SwitchBot API the services need.
type DeviceGateway interface {
	Devices(ctx context.Context, token string) ([]domain.Device, error)
	Send(ctx context.Context, token, deviceID string, cmd switchbot.Command) error
}

// Registration runs the token registration flow for a user. A registration
// session marks that the next text message from that user is treated as a
// credential submission rather than a normal message.
type Registration struct {
	sessions domain.SessionStore
	profiles domain.ProfileRepository
	gateway  DeviceGateway
	validate *validator.Validate
}

func NewRegistration(sessions domain.SessionStore, profiles domain.ProfileRepository, gateway DeviceGateway) *Registration {
	return &Registration{
		sessions: sessions,
		profiles: profiles,
		gateway:  gateway,
		validate: validator.New(),
	}
}

// Active reports whether the user has a registration session in progress.
func (r *Registration) Active(ctx context.Context, userID string) bool {
	active, err := r.sessions.Active(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("session lookup failed")
		return false
	}
	return active
}

// Begin opens a registration session and returns the prompt to show the user.
func (r *Registration) Begin(ctx context.Context, userID string) string {
	if err := r.sessions.Start(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to start registration session")
		return msgPersistFailed
	}
	log.Info().Str("user_id", userID).Msg("registration session started")
	return msgRegisterPrompt
}

// Cancel closes any open session. The reply distinguishes whether there was
// anything to cancel.
func (r *Registration) Cancel(ctx context.Context, userID string) string {
	active, err := r.sessions.Active(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("session lookup failed")
		return msgCancelNothing
	}
	if !active {
		return msgCancelNothing
	}
	if err := r.sessions.Clear(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to clear registration session")
	}
	log.Info().Str("user_id", userID).Msg("registration cancelled")
	return msgCancelDone
}

// Submit treats text as a credential submission. On success the token and the
// enumerated device list are persisted and the session is closed. On any
// failure the session stays open so the user can retry or cancel.
func (r *Registration) Submit(ctx context.Context, userID, text string) string {
	token := strings.TrimSpace(text)

	sub := domain.CredentialSubmission{Token: token}
	if err := r.validate.Struct(sub); err != nil {
		log.Debug().Str("user_id", userID).Msg("rejected credential submission")
		return msgTokenInvalid
	}

	devices, err := r.gateway.Devices(ctx, token)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("device enumeration failed during registration")
		return msgEnumerateFailed
	}

	profile := &domain.UserProfile{
		UserID:  userID,
		Token:   token,
		Devices: devices,
	}
	if err := r.profiles.Upsert(ctx, profile); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to persist profile")
		return msgPersistFailed
	}

	if err := r.sessions.Clear(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to clear registration session")
	}

	log.Info().Str("user_id", userID).Int("devices", len(devices)).Msg("registration completed")
	return msgRegisterDone(len(devices))
}
