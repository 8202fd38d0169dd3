package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	authtypes "github.com/vasapolrittideah/social-login-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/social-login-api/shared/auth"
)

type contextKey struct{}

var sessionClaimsKey = contextKey{}

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errInvalidAuthorization = errors.New("invalid authorization header format")
)

// NewJWTMiddleware rejects requests without a valid bearer access token and
// stores its claims in the request context.
func NewJWTMiddleware(jwtAuth auth.JWTAuthenticator, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := extractAndValidateJWT(r, jwtAuth, secret)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(authtypes.ErrorResponse{
					Code:    "UNAUTHENTICATED",
					Message: "missing or invalid access token",
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSessionClaims(r.Context(), claims)))
		})
	}
}

// WithSessionClaims returns a copy of ctx carrying claims.
func WithSessionClaims(ctx context.Context, claims *authtypes.SessionClaims) context.Context {
	return context.WithValue(ctx, sessionClaimsKey, claims)
}

// SessionClaimsFromContext returns the claims stored by the middleware.
func SessionClaimsFromContext(ctx context.Context) (*authtypes.SessionClaims, bool) {
	claims, ok := ctx.Value(sessionClaimsKey).(*authtypes.SessionClaims)
	return claims, ok
}

func extractAndValidateJWT(r *http.Request, jwtAuth auth.JWTAuthenticator, secret string) (*authtypes.SessionClaims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errMissingAuthorization
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, errInvalidAuthorization
	}

	claims := &authtypes.SessionClaims{}
	if _, err := jwtAuth.ValidateTokenWithClaims(strings.TrimSpace(parts[1]), secret, claims); err != nil {
		return nil, err
	}

	return claims, nil
}
