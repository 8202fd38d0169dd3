package model

import "time"

// LoginTypeSocial tags sessions created by a social login.
const LoginTypeSocial = "social"

// Session is the server side record of one login on one device. It is the
// only authority on whether a refresh token is still usable.
type Session struct {
	ID                string     `bson:"_id"`
	UserID            string     `bson:"user_id"`
	RefreshTokenHash  string     `bson:"refresh_token_hash"`
	DeviceFingerprint *string    `bson:"device_fingerprint,omitempty"`
	DeviceInfo        string     `bson:"device_info"`
	IPAddress         *string    `bson:"ip_address,omitempty"`
	UserAgent         *string    `bson:"user_agent,omitempty"`
	LoginType         string     `bson:"login_type"`
	Active            bool       `bson:"active"`
	IssuedAt          time.Time  `bson:"issued_at"`
	ExpiresAt         time.Time  `bson:"expires_at"`
	LastRefreshedAt   *time.Time `bson:"last_refreshed_at,omitempty"`
	CreatedAt         time.Time  `bson:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at"`
}
