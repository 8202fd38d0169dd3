package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/social-login-api/shared/idempotency"
	"github.com/vasapolrittideah/social-login-api/shared/metrics"
	"github.com/vasapolrittideah/social-login-api/shared/middleware"
	"github.com/vasapolrittideah/social-login-api/shared/provider"
	"github.com/vasapolrittideah/social-login-api/shared/utilities"
)

const fingerprintCookie = "device_fingerprint"

// maxBodyBytes bounds every request body.
const maxBodyBytes = 64 << 10

type AuthHTTPHandler struct {
	socialAuthUsecase usecase.SocialAuthUsecase
	guard             idempotency.Guard
	metrics           metrics.LoginRecorder
	authenticate      func(http.Handler) http.Handler
	clientIP          *utilities.ClientIPResolver
	validator         *requestValidator
	logger            *zerolog.Logger
}

// NewAuthHTTPHandler builds the HTTP handler. authenticate guards the
// routes that need a bearer access token.
func NewAuthHTTPHandler(
	socialAuthUsecase usecase.SocialAuthUsecase,
	guard idempotency.Guard,
	recorder metrics.LoginRecorder,
	authenticate func(http.Handler) http.Handler,
	clientIP *utilities.ClientIPResolver,
	logger *zerolog.Logger,
) *AuthHTTPHandler {
	v, err := newRequestValidator()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to register validator translations")
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if clientIP == nil {
		clientIP = &utilities.ClientIPResolver{}
	}

	return &AuthHTTPHandler{
		socialAuthUsecase: socialAuthUsecase,
		guard:             guard,
		metrics:           recorder,
		authenticate:      authenticate,
		clientIP:          clientIP,
		validator:         v,
		logger:            logger,
	}
}

func (h *AuthHTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/social/{provider}/callback", h.SocialCallback)
		r.Post("/refresh", h.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)
		})
	})
}

func (h *AuthHTTPHandler) SocialCallback(w http.ResponseWriter, r *http.Request) {
	rawProvider := chi.URLParam(r, "provider")
	providerName := provider.Label(rawProvider)

	var req SocialCallbackRequest
	if !h.decode(w, r, &req) {
		return
	}

	// Unsupported providers fail in the usecase without claiming a key.
	if providerName != provider.InvalidLabel {
		err := h.guard.Acquire(r.Context(), providerName, req.Code)
		switch {
		case errors.Is(err, idempotency.ErrDuplicateCallback):
			h.metrics.RecordDuplicateCallback(providerName)
			h.logger.Warn().Str("provider", providerName).Msg("duplicate social callback rejected")
			writeError(w, http.StatusConflict, codeDuplicateCallback, "callback is already being processed")
			return
		case err != nil:
			h.logger.Warn().Err(err).Str("provider", providerName).Msg("callback guard unavailable, continuing")
		}
	}

	var fingerprint string
	if cookie, err := r.Cookie(fingerprintCookie); err == nil {
		fingerprint = cookie.Value
	}

	result, err := h.socialAuthUsecase.Login(r.Context(), usecase.LoginParams{
		Provider:    rawProvider,
		Code:        req.Code,
		Fingerprint: fingerprint,
		Client: usecase.ClientInfo{
			IPAddress: h.clientIP.ClientIP(r),
			UserAgent: r.UserAgent(),
		},
	})
	if err != nil {
		writeUsecaseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *AuthHTTPHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.socialAuthUsecase.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if !errors.Is(err, usecase.ErrInvalidSession) {
			h.logger.Error().Err(err).Msg("failed to refresh session")
		}
		writeUsecaseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *AuthHTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.SessionClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing or invalid access token")
		return
	}

	if err := h.socialAuthUsecase.Logout(r.Context(), claims.SessionID); err != nil {
		if !errors.Is(err, usecase.ErrInvalidSession) {
			h.logger.Error().Err(err).Str("session_id", claims.SessionID).Msg("failed to logout")
		}
		writeUsecaseError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHTTPHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.SessionClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing or invalid access token")
		return
	}

	providers, err := h.socialAuthUsecase.LinkedProviders(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", claims.UserID).Msg("failed to list linked providers")
		writeUsecaseError(w, err)
		return
	}

	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}
	writeJSON(w, http.StatusOK, MeResponse{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.AvatarURL,
		Roles:     roles,
		Providers: providers,
	})
}

// decode reads and validates a JSON body, writing the error response itself.
func (h *AuthHTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, string(usecase.KindInvalidField), "request body must be valid JSON")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, string(usecase.KindInvalidField), err.Error())
		return false
	}

	return true
}
