// Package sqlite persists user profiles in an embedded SQLite database,
// for single-node deployments that do not run Mongo.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ynakagi/homerelay/internal/domain"
	"github.com/ynakagi/homerelay/internal/security"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id    TEXT PRIMARY KEY,
	token      TEXT NOT NULL,
	devices    TEXT NOT NULL DEFAULT '[]',
	updated_at TIMESTAMP NOT NULL
);`

// ProfileRepository implements domain.ProfileRepository on SQLite. Devices
// are stored as a JSON column; the token is encrypted at rest when an
// encryptor is supplied.
type ProfileRepository struct {
	db        *sql.DB
	encryptor *security.Encryptor
}

// NewProfileRepository opens (or creates) the database at path and
// bootstraps the schema.
func NewProfileRepository(path string, encryptor *security.Encryptor) (*ProfileRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite is single-writer; one shared connection serializes callers
	// through database/sql instead of colliding on write locks.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &ProfileRepository{db: db, encryptor: encryptor}, nil
}

// Close closes the database connection
func (r *ProfileRepository) Close() error {
	return r.db.Close()
}

// Ping verifies the database is reachable, for readiness checks
func (r *ProfileRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Get returns the profile for userID, or domain.ErrNotFound
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var (
		profile     domain.UserProfile
		devicesJSON string
	)
	row := r.db.QueryRowContext(ctx,
		"SELECT user_id, token, devices, updated_at FROM profiles WHERE user_id = ?", userID)
	err := row.Scan(&profile.UserID, &profile.Token, &devicesJSON, &profile.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	if err := json.Unmarshal([]byte(devicesJSON), &profile.Devices); err != nil {
		return nil, fmt.Errorf("failed to decode devices: %w", err)
	}

	if r.encryptor != nil && profile.Token != "" {
		token, err := r.encryptor.DecryptString(profile.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt token: %w", err)
		}
		profile.Token = token
	}

	return &profile, nil
}

// Upsert creates or replaces the profile keyed by its UserID
func (r *ProfileRepository) Upsert(ctx context.Context, profile *domain.UserProfile) error {
	token := profile.Token
	if r.encryptor != nil && token != "" {
		encrypted, err := r.encryptor.EncryptString(token)
		if err != nil {
			return fmt.Errorf("failed to encrypt token: %w", err)
		}
		token = encrypted
	}

	devicesJSON, err := json.Marshal(profile.Devices)
	if err != nil {
		return fmt.Errorf("failed to encode devices: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, token, devices, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			token = excluded.token,
			devices = excluded.devices,
			updated_at = excluded.updated_at`,
		profile.UserID, token, string(devicesJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}
