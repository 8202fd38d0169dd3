package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of both the access and the refresh token.
type SessionClaims struct {
	SessionID   string   `json:"sid"`
	UserID      string   `json:"uid"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	Roles       []string `json:"roles"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	jwt.RegisteredClaims
}

// Tokens is the application token pair handed to clients.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type LoginUser struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	AvatarURL   string    `json:"avatarUrl"`
	Roles       []string  `json:"roles"`
	TokenExpiry time.Time `json:"tokenExpiry"`
}

type SessionInfo struct {
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LoginResult is returned by a successful social login.
type LoginResult struct {
	User    LoginUser   `json:"user"`
	Tokens  Tokens      `json:"tokens"`
	Session SessionInfo `json:"session"`
}

// RefreshResult is returned by a successful refresh token rotation.
type RefreshResult struct {
	Tokens      Tokens      `json:"tokens"`
	TokenExpiry time.Time   `json:"tokenExpiry"`
	Session     SessionInfo `json:"session"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
