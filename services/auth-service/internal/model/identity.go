package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Identity links one external provider account to one user. The pair
// (Provider, ProviderUserID) is unique and never changes after creation.
// Cached profile fields and provider tokens are refreshed on every login.
type Identity struct {
	ID                    bson.ObjectID `bson:"_id,omitempty"`
	UserID                string        `bson:"user_id"`
	Provider              string        `bson:"provider"`
	ProviderUserID        string        `bson:"provider_user_id"`
	Email                 string        `bson:"email"`
	DisplayName           string        `bson:"display_name"`
	AvatarURL             string        `bson:"avatar_url"`
	AccessToken           string        `bson:"access_token"`
	RefreshToken          string        `bson:"refresh_token,omitempty"`
	Scope                 string        `bson:"scope,omitempty"`
	AccessTokenExpiresAt  *time.Time    `bson:"access_token_expires_at,omitempty"`
	RefreshTokenExpiresAt *time.Time    `bson:"refresh_token_expires_at,omitempty"`
	LastLoginAt           time.Time     `bson:"last_login_at"`
	CreatedAt             time.Time     `bson:"created_at"`
	UpdatedAt             time.Time     `bson:"updated_at"`
}
