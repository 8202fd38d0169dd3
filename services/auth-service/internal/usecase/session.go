package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/repository"
	authtypes "github.com/vasapolrittideah/social-login-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/social-login-api/shared/auth"
	"github.com/vasapolrittideah/social-login-api/shared/security"
)

// ClientInfo describes the client that started a request.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// IssuedSession is the outcome of creating or refreshing a session.
type IssuedSession struct {
	SessionID            string
	AccessToken          string
	RefreshToken         string
	AccessTokenExpiresAt time.Time
	ExpiresAt            time.Time
}

// SessionIssuer mints application tokens backed by a persisted session.
type SessionIssuer interface {
	// Issue creates exactly one session per call.
	Issue(ctx context.Context, user *model.User, client ClientInfo, fingerprint string) (*IssuedSession, error)
	// Refresh rotates the refresh token of a live session.
	Refresh(ctx context.Context, refreshToken string) (*IssuedSession, error)
	// Revoke deactivates a session.
	Revoke(ctx context.Context, sessionID string) error
}

type deviceInfo struct {
	IPAddress   string `json:"ip_address,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

type sessionIssuer struct {
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	jwtAuth     auth.JWTAuthenticator
	tokenCfg    config.TokenConfig
	logger      *zerolog.Logger
	now         func() time.Time
}

func NewSessionIssuer(
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	jwtAuth auth.JWTAuthenticator,
	tokenCfg config.TokenConfig,
	logger *zerolog.Logger,
) SessionIssuer {
	return &sessionIssuer{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		jwtAuth:     jwtAuth,
		tokenCfg:    tokenCfg,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *sessionIssuer) Issue(
	ctx context.Context,
	user *model.User,
	client ClientInfo,
	fingerprint string,
) (*IssuedSession, error) {
	now := s.now()
	sessionID := uuid.NewString()
	expiresAt := now.Add(s.tokenCfg.SessionExpiresIn)

	issued, err := s.signPair(user, sessionID, fingerprint, now, expiresAt)
	if err != nil {
		return nil, err
	}

	refreshHash, err := security.HashToken(issued.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to hash refresh token: %w", err)
	}

	device, err := json.Marshal(deviceInfo{
		IPAddress:   client.IPAddress,
		UserAgent:   client.UserAgent,
		Fingerprint: fingerprint,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.sessionRepo.CreateSession(ctx, &model.Session{
		ID:                sessionID,
		UserID:            user.ID.Hex(),
		RefreshTokenHash:  refreshHash,
		DeviceFingerprint: optional(fingerprint),
		DeviceInfo:        string(device),
		IPAddress:         optional(client.IPAddress),
		UserAgent:         optional(client.UserAgent),
		LoginType:         model.LoginTypeSocial,
		Active:            true,
		IssuedAt:          now,
		ExpiresAt:         expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return issued, nil
}

func (s *sessionIssuer) Refresh(ctx context.Context, refreshToken string) (*IssuedSession, error) {
	var claims authtypes.SessionClaims
	if _, err := s.jwtAuth.ValidateTokenWithClaims(refreshToken, s.tokenCfg.RefreshTokenSecret, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	session, err := s.sessionRepo.GetSession(ctx, claims.SessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	now := s.now()
	if !session.Active || !now.Before(session.ExpiresAt) || session.UserID != claims.UserID {
		return nil, ErrInvalidSession
	}

	ok, err := security.VerifyToken(refreshToken, session.RefreshTokenHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify refresh token: %w", err)
	}
	if !ok {
		// A signed but superseded refresh token was presented: the session
		// is treated as compromised.
		s.logger.Warn().Str("session_id", session.ID).Msg("refresh token reuse detected, revoking session")
		if err := s.sessionRepo.DeactivateSession(ctx, session.ID); err != nil {
			s.logger.Error().Err(err).Str("session_id", session.ID).Msg("failed to revoke session")
		}
		return nil, ErrInvalidSession
	}

	user, err := s.userRepo.GetUser(ctx, session.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}

	fingerprint := ""
	if session.DeviceFingerprint != nil {
		fingerprint = *session.DeviceFingerprint
	}

	issued, err := s.signPair(user, session.ID, fingerprint, now, session.ExpiresAt)
	if err != nil {
		return nil, err
	}

	newHash, err := security.HashToken(issued.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to hash refresh token: %w", err)
	}

	err = s.sessionRepo.RotateRefreshToken(ctx, session.ID, session.RefreshTokenHash, newHash)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return issued, nil
}

func (s *sessionIssuer) Revoke(ctx context.Context, sessionID string) error {
	err := s.sessionRepo.DeactivateSession(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidSession
	}
	return err
}

// signPair signs an access token and a refresh token. The refresh token
// lives as long as the session.
func (s *sessionIssuer) signPair(
	user *model.User,
	sessionID string,
	fingerprint string,
	now time.Time,
	sessionExpiresAt time.Time,
) (*IssuedSession, error) {
	claims := authtypes.SessionClaims{
		SessionID:   sessionID,
		UserID:      user.ID.Hex(),
		Email:       user.Email,
		Name:        user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Roles:       user.Roles,
		Fingerprint: fingerprint,
	}

	accessExpiresAt := now.Add(s.tokenCfg.AccessTokenExpiresIn)
	if accessExpiresAt.After(sessionExpiresAt) {
		accessExpiresAt = sessionExpiresAt
	}

	claims.RegisteredClaims = s.jwtAuth.RegisteredClaims(user.ID.Hex(), uuid.NewString(), now, accessExpiresAt.Sub(now))
	accessToken, err := s.jwtAuth.GenerateToken(claims, s.tokenCfg.AccessTokenSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	claims.RegisteredClaims = s.jwtAuth.RegisteredClaims(user.ID.Hex(), uuid.NewString(), now, sessionExpiresAt.Sub(now))
	refreshToken, err := s.jwtAuth.GenerateToken(claims, s.tokenCfg.RefreshTokenSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &IssuedSession{
		SessionID:            sessionID,
		AccessToken:          accessToken,
		RefreshToken:         refreshToken,
		AccessTokenExpiresAt: accessExpiresAt,
		ExpiresAt:            sessionExpiresAt,
	}, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
