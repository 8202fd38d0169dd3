package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/model"
)

// IdentityRepository defines the interface for identity-related database operations.
type IdentityRepository interface {
	CreateIdentity(ctx context.Context, identity *model.Identity) (*model.Identity, error)
	GetIdentityByProvider(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
	GetIdentitiesByUserID(ctx context.Context, userID string) ([]model.Identity, error)
	UpdateLogin(ctx context.Context, id string, params UpdateIdentityLoginParams) error
}

// UpdateIdentityLoginParams carries the values refreshed on every login.
type UpdateIdentityLoginParams struct {
	Email                 string     `bson:"email"`
	DisplayName           string     `bson:"display_name"`
	AvatarURL             string     `bson:"avatar_url"`
	AccessToken           string     `bson:"access_token"`
	RefreshToken          string     `bson:"refresh_token,omitempty"`
	Scope                 string     `bson:"scope,omitempty"`
	AccessTokenExpiresAt  *time.Time `bson:"access_token_expires_at,omitempty"`
	RefreshTokenExpiresAt *time.Time `bson:"refresh_token_expires_at,omitempty"`
	LastLoginAt           time.Time  `bson:"last_login_at"`
	UpdatedAt             time.Time  `bson:"updated_at"`
}

const identityCollection = "identities"

type identityMongoRepository struct {
	db *mongo.Database
}

func NewIdentityMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) IdentityRepository {
	collection := db.Collection(identityCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "provider_user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create identity indexes")
	}

	return &identityMongoRepository{db: db}
}

func (r *identityMongoRepository) CreateIdentity(
	ctx context.Context,
	identity *model.Identity,
) (*model.Identity, error) {
	now := time.Now()
	identity.ID = bson.NewObjectID()
	identity.LastLoginAt = now
	identity.CreatedAt = now
	identity.UpdatedAt = now

	if _, err := r.db.Collection(identityCollection).InsertOne(ctx, identity); err != nil {
		return nil, translateError(err)
	}

	return identity, nil
}

func (r *identityMongoRepository) GetIdentityByProvider(
	ctx context.Context,
	provider string,
	providerUserID string,
) (*model.Identity, error) {
	var identity model.Identity
	err := r.db.Collection(identityCollection).FindOne(ctx, bson.M{
		"provider":         provider,
		"provider_user_id": providerUserID,
	}).Decode(&identity)
	if err != nil {
		return nil, translateError(err)
	}

	return &identity, nil
}

func (r *identityMongoRepository) GetIdentitiesByUserID(ctx context.Context, userID string) ([]model.Identity, error) {
	cursor, err := r.db.Collection(identityCollection).Find(
		ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, translateError(err)
	}

	identities := []model.Identity{}
	if err := cursor.All(ctx, &identities); err != nil {
		return nil, translateError(err)
	}

	return identities, nil
}

// UpdateLogin never touches provider or provider_user_id.
func (r *identityMongoRepository) UpdateLogin(
	ctx context.Context,
	id string,
	params UpdateIdentityLoginParams,
) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}

	result, err := r.db.Collection(identityCollection).UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": params},
	)
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}
