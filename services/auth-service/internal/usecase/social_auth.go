package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/model"
	authtypes "github.com/vasapolrittideah/social-login-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/social-login-api/shared/logger"
	"github.com/vasapolrittideah/social-login-api/shared/metrics"
	"github.com/vasapolrittideah/social-login-api/shared/provider"
)

// SocialAuthUsecase defines the social login use cases.
type SocialAuthUsecase interface {
	// Login turns an authorization code into a session. Every failure is a
	// *LoginError and every attempt writes one login history entry.
	Login(ctx context.Context, params LoginParams) (*authtypes.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*authtypes.RefreshResult, error)
	Logout(ctx context.Context, sessionID string) error
	LinkedProviders(ctx context.Context, userID string) ([]string, error)
}

// LoginParams defines the parameters of a social login callback.
type LoginParams struct {
	Provider    string
	Code        string
	Fingerprint string
	Client      ClientInfo
}

type socialAuthUsecase struct {
	registry  *provider.Registry
	validator ProfileValidator
	resolver  IdentityResolver
	issuer    SessionIssuer
	audit     AuditRecorder
	metrics   metrics.LoginRecorder
	logger    *zerolog.Logger
}

func NewSocialAuthUsecase(
	registry *provider.Registry,
	validator ProfileValidator,
	resolver IdentityResolver,
	issuer SessionIssuer,
	audit AuditRecorder,
	recorder metrics.LoginRecorder,
	logger *zerolog.Logger,
) SocialAuthUsecase {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &socialAuthUsecase{
		registry:  registry,
		validator: validator,
		resolver:  resolver,
		issuer:    issuer,
		audit:     audit,
		metrics:   recorder,
		logger:    logger,
	}
}

// loginAttempt tracks one pass through the login state machine.
type loginAttempt struct {
	params      LoginParams
	provider    string
	stage       Stage
	identityRef string
	startedAt   time.Time
}

func (u *socialAuthUsecase) Login(ctx context.Context, params LoginParams) (*authtypes.LoginResult, error) {
	attempt := &loginAttempt{
		params:    params,
		provider:  provider.Label(params.Provider),
		stage:     StageReceivedCode,
		startedAt: time.Now(),
	}
	attempt.identityRef = unknownIdentityRef(attempt.provider)

	name, err := provider.ParseName(params.Provider)
	if err != nil {
		return u.fail(ctx, attempt, err)
	}
	if strings.TrimSpace(params.Code) == "" {
		return u.fail(ctx, attempt, ErrInvalidField)
	}

	p, err := u.registry.Get(name)
	if err != nil {
		return u.fail(ctx, attempt, err)
	}

	tokens, err := p.ExchangeToken(ctx, params.Code)
	if err != nil {
		return u.fail(ctx, attempt, err)
	}
	attempt.stage = StageTokenExchanged

	profile, err := p.FetchProfile(ctx, tokens)
	if err != nil {
		return u.fail(ctx, attempt, err)
	}
	attempt.stage = StageProfileFetched

	if err := u.validator.Validate(*profile, name); err != nil {
		return u.fail(ctx, attempt, err)
	}
	attempt.stage = StageProfileValidated

	user, err := u.resolver.Resolve(ctx, *profile, tokens)
	if err != nil {
		var statusErr *AccountStatusError
		if errors.As(err, &statusErr) {
			attempt.identityRef = statusErr.Email
		}
		return u.fail(ctx, attempt, err)
	}
	attempt.stage = StageIdentityResolved
	attempt.identityRef = user.Email

	issued, err := u.issuer.Issue(ctx, user, params.Client, params.Fingerprint)
	if err != nil {
		return u.fail(ctx, attempt, err)
	}
	attempt.stage = StageSessionIssued

	u.audit.Record(ctx, AuditEntry{
		IdentityRef: attempt.identityRef,
		Provider:    attempt.provider,
		Success:     true,
		Client:      params.Client,
	})
	u.metrics.RecordLogin(attempt.provider, "success", time.Since(attempt.startedAt))

	u.logger.Info().
		Str("provider", attempt.provider).
		Str("user_id", user.ID.Hex()).
		Str("session_id", issued.SessionID).
		Msg("social login succeeded")

	return &authtypes.LoginResult{
		User:    loginUser(user, issued),
		Tokens:  authtypes.Tokens{AccessToken: issued.AccessToken, RefreshToken: issued.RefreshToken},
		Session: authtypes.SessionInfo{SessionID: issued.SessionID, ExpiresAt: issued.ExpiresAt},
	}, nil
}

// fail is the single exit of every failed attempt.
func (u *socialAuthUsecase) fail(ctx context.Context, attempt *loginAttempt, err error) (*authtypes.LoginResult, error) {
	loginErr := &LoginError{
		Kind:     Classify(err),
		Stage:    attempt.stage,
		Provider: attempt.provider,
		Err:      err,
	}

	u.audit.Record(ctx, AuditEntry{
		IdentityRef: attempt.identityRef,
		Provider:    attempt.provider,
		Success:     false,
		Kind:        loginErr.Kind,
		Client:      attempt.params.Client,
	})
	u.metrics.RecordLogin(attempt.provider, string(loginErr.Kind), time.Since(attempt.startedAt))

	event := u.logger.Warn()
	if loginErr.Kind == KindUnknown {
		event = u.logger.Error()
	}
	event.Err(err).
		Str("provider", attempt.provider).
		Str("stage", string(attempt.stage)).
		Str("kind", string(loginErr.Kind)).
		Str("identity_ref", logger.MaskEmail(attempt.identityRef)).
		Msg("social login failed")

	return nil, loginErr
}

func (u *socialAuthUsecase) Refresh(ctx context.Context, refreshToken string) (*authtypes.RefreshResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrInvalidField
	}

	issued, err := u.issuer.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	return &authtypes.RefreshResult{
		Tokens:      authtypes.Tokens{AccessToken: issued.AccessToken, RefreshToken: issued.RefreshToken},
		TokenExpiry: issued.AccessTokenExpiresAt,
		Session:     authtypes.SessionInfo{SessionID: issued.SessionID, ExpiresAt: issued.ExpiresAt},
	}, nil
}

func (u *socialAuthUsecase) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidField
	}
	return u.issuer.Revoke(ctx, sessionID)
}

func (u *socialAuthUsecase) LinkedProviders(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrInvalidField
	}
	return u.resolver.LinkedProviders(ctx, userID)
}

func loginUser(user *model.User, issued *IssuedSession) authtypes.LoginUser {
	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}
	return authtypes.LoginUser{
		ID:          user.ID.Hex(),
		Email:       user.Email,
		Name:        user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Roles:       roles,
		TokenExpiry: issued.AccessTokenExpiresAt,
	}
}
