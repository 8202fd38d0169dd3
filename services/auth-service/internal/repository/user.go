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

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	// CreateUserWithIdentity inserts a user and its first identity atomically.
	CreateUserWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, params UpdateUserParams) (*model.User, error)
	AddRole(ctx context.Context, id string, role string) error
}

// UpdateUserParams defines the optional parameters for updating a user.
// Only the fields that are not nil will be updated.
type UpdateUserParams struct {
	Email       *string
	DisplayName *string
	AvatarURL   *string
}

// IsEmpty reports whether the params would change nothing.
func (p UpdateUserParams) IsEmpty() bool {
	return p.Email == nil && p.DisplayName == nil && p.AvatarURL == nil
}

const userCollection = "users"

type userMongoRepository struct {
	db *mongo.Database
}

func NewUserMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) UserRepository {
	collection := db.Collection(userCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create user indexes")
	}

	return &userMongoRepository{db: db}
}

func (r *userMongoRepository) CreateUserWithIdentity(
	ctx context.Context,
	user *model.User,
	identity *model.Identity,
) (*model.User, error) {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		now := time.Now()
		user.ID = bson.NewObjectID()
		if user.Roles == nil {
			user.Roles = []string{}
		}
		user.CreatedAt = now
		user.UpdatedAt = now

		if _, err := r.db.Collection(userCollection).InsertOne(ctx, user); err != nil {
			return nil, err
		}

		identity.ID = bson.NewObjectID()
		identity.UserID = user.ID.Hex()
		identity.LastLoginAt = now
		identity.CreatedAt = now
		identity.UpdatedAt = now

		if _, err := r.db.Collection(identityCollection).InsertOne(ctx, identity); err != nil {
			return nil, err
		}

		return nil, nil
	})
	if err != nil {
		return nil, translateError(err)
	}

	return user, nil
}

func (r *userMongoRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	var user model.User
	if err := r.db.Collection(userCollection).FindOne(ctx, bson.M{"_id": objectID}).Decode(&user); err != nil {
		return nil, translateError(err)
	}

	return &user, nil
}

func (r *userMongoRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.Collection(userCollection).FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, translateError(err)
	}

	return &user, nil
}

func (r *userMongoRepository) UpdateUser(
	ctx context.Context,
	id string,
	params UpdateUserParams,
) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	updateMap := bson.M{}
	if params.Email != nil {
		updateMap["email"] = *params.Email
	}
	if params.DisplayName != nil {
		updateMap["display_name"] = *params.DisplayName
	}
	if params.AvatarURL != nil {
		updateMap["avatar_url"] = *params.AvatarURL
	}

	if len(updateMap) == 0 {
		return nil, ErrNoChanges
	}

	updateMap["updated_at"] = time.Now()

	var user model.User
	err = r.db.Collection(userCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": updateMap},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		return nil, translateError(err)
	}

	return &user, nil
}

func (r *userMongoRepository) AddRole(ctx context.Context, id string, role string) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}

	result, err := r.db.Collection(userCollection).UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{
			"$addToSet": bson.M{"roles": role},
			"$set":      bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}
