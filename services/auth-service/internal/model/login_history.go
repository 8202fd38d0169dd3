package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// LoginHistory is one append-only audit entry per login attempt.
type LoginHistory struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	IdentityRef string        `bson:"identity_ref"`
	Provider    string        `bson:"provider"`
	Success     bool          `bson:"success"`
	FailureKind string        `bson:"failure_kind,omitempty"`
	IPAddress   string        `bson:"ip_address,omitempty"`
	UserAgent   string        `bson:"user_agent,omitempty"`
	CreatedAt   time.Time     `bson:"created_at"`
}
