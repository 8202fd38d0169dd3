package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/social-login-api/shared/logger"
)

// AuditEntry describes one login attempt.
type AuditEntry struct {
	IdentityRef string
	Provider    string
	Success     bool
	Kind        ErrorKind
	Client      ClientInfo
}

// AuditRecorder writes the login history. Write failures are logged and
// never change the outcome of the login.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type auditRecorder struct {
	historyRepo repository.LoginHistoryRepository
	logger      *zerolog.Logger
}

func NewAuditRecorder(historyRepo repository.LoginHistoryRepository, logger *zerolog.Logger) AuditRecorder {
	return &auditRecorder{historyRepo: historyRepo, logger: logger}
}

func (a *auditRecorder) Record(ctx context.Context, entry AuditEntry) {
	// The entry is written even when the caller has gone away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := a.historyRepo.CreateLoginHistory(ctx, &model.LoginHistory{
		IdentityRef: entry.IdentityRef,
		Provider:    entry.Provider,
		Success:     entry.Success,
		FailureKind: string(entry.Kind),
		IPAddress:   entry.Client.IPAddress,
		UserAgent:   entry.Client.UserAgent,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		a.logger.Error().
			Err(err).
			Str("identity_ref", logger.MaskEmail(entry.IdentityRef)).
			Bool("success", entry.Success).
			Msg("failed to record login history")
	}
}

// unknownIdentityRef marks attempts that never reached a real user.
func unknownIdentityRef(provider string) string {
	return fmt.Sprintf("unknown_%s_user", provider)
}
