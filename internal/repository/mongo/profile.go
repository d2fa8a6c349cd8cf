// Package mongo persists user profiles in a MongoDB collection keyed by
// the chat-platform user id.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ynakagi/homerelay/internal/config"
	"github.com/ynakagi/homerelay/internal/domain"
	"github.com/ynakagi/homerelay/internal/security"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProfileRepository implements domain.ProfileRepository on a Mongo
// collection. The gateway token is encrypted at rest when an encryptor is
// supplied.
type ProfileRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	encryptor  *security.Encryptor
}

// NewProfileRepository connects to Mongo and ensures the userId index.
// encryptor may be nil to store tokens in the clear (development only).
func NewProfileRepository(ctx context.Context, cfg config.MongoConfig, encryptor *security.Encryptor) (*ProfileRepository, error) {
	clientOpts := options.Client().ApplyURI(cfg.URI).SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	collection := client.Database(cfg.Database).Collection(cfg.Collection)

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, fmt.Errorf("failed to create userId index: %w", err)
	}

	return &ProfileRepository{
		client:     client,
		collection: collection,
		encryptor:  encryptor,
	}, nil
}

// Close disconnects the underlying client
func (r *ProfileRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// Ping verifies connectivity, for readiness checks
func (r *ProfileRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Get returns the profile for userID, or domain.ErrNotFound
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&profile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
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
	stored := *profile
	stored.UpdatedAt = time.Now().UTC()

	if r.encryptor != nil && stored.Token != "" {
		token, err := r.encryptor.EncryptString(stored.Token)
		if err != nil {
			return fmt.Errorf("failed to encrypt token: %w", err)
		}
		stored.Token = token
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"userId": stored.UserID}, &stored, opts); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}
