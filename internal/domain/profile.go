package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when no profile exists for a user.
var ErrNotFound = errors.New("profile not found")

// ErrReadOnly is returned by profile sources that cannot be written to
// (the static single-tenant source).
var ErrReadOnly = errors.New("profile source is read-only")

// Device is one controllable device owned by a user, as enumerated by the
// device gateway.
type Device struct {
	DeviceID    string `json:"device_id" bson:"deviceId"`
	DeviceName  string `json:"device_name" bson:"deviceName"`
	DeviceType  string `json:"device_type" bson:"deviceType"`
	HubDeviceID string `json:"hub_device_id,omitempty" bson:"hubDeviceId,omitempty"`
}

// UserProfile links a chat-platform user to their device-gateway credential
// and the device list enumerated with it. Absence of a profile means the
// user has not registered yet.
type UserProfile struct {
	UserID    string    `json:"user_id" bson:"userId"`
	Token     string    `json:"-" bson:"switchbotToken"`
	Devices   []Device  `json:"devices" bson:"devices"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
}

// FindDevice returns the device whose name matches exactly. Matching is
// deliberately case- and whitespace-sensitive.
func (p *UserProfile) FindDevice(name string) (Device, bool) {
	for _, d := range p.Devices {
		if d.DeviceName == name {
			return d, true
		}
	}
	return Device{}, false
}

// CredentialSubmission carries a device-gateway token submitted during
// registration. The gateway issues opaque lowercase-hex tokens well above
// 61 characters; anything shorter or containing non-alphanumeric input is
// rejected before we ever call the gateway with it.
type CredentialSubmission struct {
	Token string `validate:"required,min=61,alphanum"`
}

// ProfileRepository is the persistence collaborator for user profiles.
type ProfileRepository interface {
	// Get returns the profile for userID, or ErrNotFound.
	Get(ctx context.Context, userID string) (*UserProfile, error)

	// Upsert creates or replaces the profile keyed by its UserID.
	Upsert(ctx context.Context, profile *UserProfile) error
}

// SessionStore tracks which users are mid-registration (awaiting a
// credential). Entries expire after the store's TTL. Concurrent writers
// for the same user get last-writer-wins semantics; nothing stronger is
// needed because a user can only converse with the bot serially.
type SessionStore interface {
	// Start marks userID as awaiting a credential.
	Start(ctx context.Context, userID string) error

	// Active reports whether userID has a live registration session.
	Active(ctx context.Context, userID string) (bool, error)

	// Clear removes the session for userID, if any.
	Clear(ctx context.Context, userID string) error
}
