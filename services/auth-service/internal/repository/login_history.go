package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/model"
)

type LoginHistoryRepository interface {
	CreateLoginHistory(ctx context.Context, entry *model.LoginHistory) error
}

const loginHistoryCollection = "login_history"

type loginHistoryMongoRepository struct {
	db *mongo.Database
}

func NewLoginHistoryMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) LoginHistoryRepository {
	collection := db.Collection(loginHistoryCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "identity_ref", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create login history indexes")
	}

	return &loginHistoryMongoRepository{db: db}
}

func (r *loginHistoryMongoRepository) CreateLoginHistory(ctx context.Context, entry *model.LoginHistory) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := r.db.Collection(loginHistoryCollection).InsertOne(ctx, entry)
	return err
}
