package usecase

import (
	"errors"
	"fmt"

	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/social-login-api/shared/provider"
)

// ErrorKind is the stable failure code returned to callers.
type ErrorKind string

const (
	KindInvalidField         ErrorKind = "INVALID_FIELD"
	KindTokenExchange        ErrorKind = "TOKEN_EXCHANGE_ERROR"
	KindAuth                 ErrorKind = "AUTH_ERROR"
	KindInvalidIdentityToken ErrorKind = "INVALID_IDENTITY_TOKEN"
	KindValidation           ErrorKind = "VALIDATION_ERROR"
	KindAccountSuspended     ErrorKind = "ACCOUNT_SUSPENDED"
	KindAccountInactive      ErrorKind = "ACCOUNT_INACTIVE"
	KindUnknown              ErrorKind = "UNKNOWN_ERROR"
)

// Stage is the last step a login attempt completed.
type Stage string

const (
	StageReceivedCode     Stage = "received_code"
	StageTokenExchanged   Stage = "token_exchanged"
	StageProfileFetched   Stage = "profile_fetched"
	StageProfileValidated Stage = "profile_validated"
	StageIdentityResolved Stage = "identity_resolved"
	StageSessionIssued    Stage = "session_issued"
)

var (
	ErrInvalidField      = errors.New("invalid field")
	ErrProfileValidation = errors.New("profile validation failed")
	ErrAccountSuspended  = errors.New("account is suspended")
	ErrAccountInactive   = errors.New("account is inactive")
	ErrInvalidSession    = errors.New("session is no longer valid")
)

// AccountStatusError is returned when a resolved user may not log in.
type AccountStatusError struct {
	UserID string
	Email  string
	Status model.UserStatus
}

func (e *AccountStatusError) Error() string {
	return fmt.Sprintf("user %s is %s", e.UserID, e.Status)
}

func (e *AccountStatusError) Is(target error) bool {
	switch target {
	case ErrAccountSuspended:
		return e.Status == model.UserStatusSuspended
	case ErrAccountInactive:
		return e.Status != model.UserStatusSuspended
	}
	return false
}

// LoginError is the single failure returned by a social login.
type LoginError struct {
	Kind     ErrorKind
	Stage    Stage
	Provider string
	Err      error
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("social login via %s failed after %s: %s: %v", e.Provider, e.Stage, e.Kind, e.Err)
}

func (e *LoginError) Unwrap() error { return e.Err }

// Classify maps an error onto the failure taxonomy.
func Classify(err error) ErrorKind {
	var (
		loginErr    *LoginError
		exchangeErr *provider.TokenExchangeError
		profileErr  *provider.ProfileError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &loginErr):
		return loginErr.Kind
	case errors.Is(err, ErrInvalidField),
		errors.Is(err, provider.ErrUnsupportedProvider),
		errors.Is(err, provider.ErrProviderDisabled):
		return KindInvalidField
	case errors.Is(err, provider.ErrInvalidIdentityToken):
		return KindInvalidIdentityToken
	case errors.As(err, &exchangeErr):
		return KindTokenExchange
	case errors.As(err, &profileErr):
		return KindAuth
	case errors.Is(err, ErrProfileValidation):
		return KindValidation
	case errors.Is(err, ErrAccountSuspended):
		return KindAccountSuspended
	case errors.Is(err, ErrAccountInactive):
		return KindAccountInactive
	default:
		return KindUnknown
	}
}
