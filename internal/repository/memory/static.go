package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/ynakagi/homerelay/internal/domain"
)

// DeviceLister enumerates the devices visible to a gateway token.
type DeviceLister interface {
	Devices(ctx context.Context, token string) ([]domain.Device, error)
}

// deviceCacheTTL bounds how stale the single-tenant device list may get
// before the next Get re-enumerates.
const deviceCacheTTL = time.Hour

// StaticProfiles is the single-tenant profile source: every user resolves
// to the same fixed gateway token. The device list is enumerated with that
// token on first use and cached; when enumeration fails, the configured
// fallback devices (if any) are returned so the relay keeps working.
type StaticProfiles struct {
	token    string
	lister   DeviceLister
	fallback []domain.Device

	mu        sync.Mutex
	devices   []domain.Device
	fetchedAt time.Time
}

// NewStaticProfiles creates the single-tenant source.
func NewStaticProfiles(token string, lister DeviceLister, fallback []domain.Device) *StaticProfiles {
	return &StaticProfiles{
		token:    token,
		lister:   lister,
		fallback: fallback,
	}
}

// Get returns the shared profile for any userID.
func (s *StaticProfiles) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return &domain.UserProfile{
		UserID:  userID,
		Token:   s.token,
		Devices: s.deviceList(ctx),
	}, nil
}

// Upsert always fails: single-tenant profiles come from configuration.
func (s *StaticProfiles) Upsert(context.Context, *domain.UserProfile) error {
	return domain.ErrReadOnly
}

func (s *StaticProfiles) deviceList(ctx context.Context) []domain.Device {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.devices != nil && time.Since(s.fetchedAt) < deviceCacheTTL {
		return s.devices
	}

	devices, err := s.lister.Devices(ctx, s.token)
	if err != nil {
		log.Warn().Err(err).Msg("device enumeration failed, using configured fallback")
		if s.devices != nil {
			return s.devices
		}
		return s.fallback
	}

	s.devices = devices
	s.fetchedAt = time.Now()
	return s.devices
}
