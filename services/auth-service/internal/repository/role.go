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

type RoleRepository interface {
	// FindOrCreateRole returns the role named name, creating it first when absent.
	FindOrCreateRole(ctx context.Context, name string) (*model.Role, error)
}

const roleCollection = "roles"

type roleMongoRepository struct {
	db *mongo.Database
}

func NewRoleMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) RoleRepository {
	collection := db.Collection(roleCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create role indexes")
	}

	return &roleMongoRepository{db: db}
}

func (r *roleMongoRepository) FindOrCreateRole(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	err := r.db.Collection(roleCollection).FindOneAndUpdate(
		ctx,
		bson.M{"name": name},
		bson.M{"$setOnInsert": bson.M{"name": name, "created_at": time.Now()}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&role)
	if err != nil {
		return nil, translateError(err)
	}

	return &role, nil
}
