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

// SessionRepository defines the interface for session-related database operations.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *model.Session) (*model.Session, error)
	GetSession(ctx context.Context, id string) (*model.Session, error)
	// RotateRefreshToken swaps the stored hash only while the session is
	// active and still holds currentHash.
	RotateRefreshToken(ctx context.Context, id, currentHash, newHash string) error
	DeactivateSession(ctx context.Context, id string) error
}

const sessionCollection = "sessions"

type sessionMongoRepository struct {
	db *mongo.Database
}

func NewSessionMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) SessionRepository {
	collection := db.Collection(sessionCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create session indexes")
	}

	return &sessionMongoRepository{db: db}
}

func (r *sessionMongoRepository) CreateSession(ctx context.Context, session *model.Session) (*model.Session, error) {
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	if _, err := r.db.Collection(sessionCollection).InsertOne(ctx, session); err != nil {
		return nil, translateError(err)
	}

	return session, nil
}

func (r *sessionMongoRepository) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	if err := r.db.Collection(sessionCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&session); err != nil {
		return nil, translateError(err)
	}

	return &session, nil
}

func (r *sessionMongoRepository) RotateRefreshToken(ctx context.Context, id, currentHash, newHash string) error {
	now := time.Now()

	result, err := r.db.Collection(sessionCollection).UpdateOne(
		ctx,
		bson.M{"_id": id, "active": true, "refresh_token_hash": currentHash},
		bson.M{"$set": bson.M{
			"refresh_token_hash": newHash,
			"last_refreshed_at":  now,
			"updated_at":         now,
		}},
	)
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *sessionMongoRepository) DeactivateSession(ctx context.Context, id string) error {
	result, err := r.db.Collection(sessionCollection).UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"active": false, "updated_at": time.Now()}},
	)
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}
