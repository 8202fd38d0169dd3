package model

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// UserStatus decides whether a user may log in.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

// DefaultRole is granted to every user created by a social login.
const DefaultRole = "user"

const placeholderEmailDomain = "@social.user"

// User represents a user in the authentication system.
type User struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	Email          string        `bson:"email"`
	DisplayName    string        `bson:"display_name"`
	AvatarURL      string        `bson:"avatar_url"`
	Status         UserStatus    `bson:"status"`
	Roles          []string      `bson:"roles"`
	TermsAccepted  bool          `bson:"terms_accepted"`
	MarketingOptIn bool          `bson:"marketing_opt_in"`
	CreatedAt      time.Time     `bson:"created_at"`
	UpdatedAt      time.Time     `bson:"updated_at"`
}

// PlaceholderEmail is stored for users whose provider shared no email
// address. It satisfies the unique email index and is never routable.
func PlaceholderEmail(provider, providerUserID string) string {
	return fmt.Sprintf("%s_%s%s", provider, providerUserID, placeholderEmailDomain)
}

// HasPlaceholderEmail reports whether the stored email was synthesized.
func (u *User) HasPlaceholderEmail() bool {
	return strings.HasSuffix(u.Email, placeholderEmailDomain)
}
