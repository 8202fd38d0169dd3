package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vasapolrittideah/social-login-api/services/auth-service/internal/usecase"
	authtypes "github.com/vasapolrittideah/social-login-api/services/auth-service/pkg/types"
)

const (
	codeDuplicateCallback = "DUPLICATE_CALLBACK"
	codeInvalidSession    = "INVALID_SESSION"
)

type errorStatus struct {
	status  int
	message string
}

var loginErrorStatus = map[usecase.ErrorKind]errorStatus{
	usecase.KindInvalidField:         {http.StatusBadRequest, "invalid provider or authorization code"},
	usecase.KindTokenExchange:        {http.StatusBadRequest, "failed to exchange authorization code"},
	usecase.KindAuth:                 {http.StatusInternalServerError, "failed to authenticate with provider"},
	usecase.KindInvalidIdentityToken: {http.StatusBadRequest, "invalid identity token"},
	usecase.KindValidation:           {http.StatusBadRequest, "provider profile failed validation"},
	usecase.KindAccountSuspended:     {http.StatusForbidden, "account is suspended"},
	usecase.KindAccountInactive:      {http.StatusForbidden, "account is inactive"},
	usecase.KindUnknown:              {http.StatusInternalServerError, "something went wrong"},
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, authtypes.ErrorResponse{Code: code, Message: message})
}

// writeUsecaseError maps err onto the failure taxonomy. Only the fixed
// message for the kind is exposed.
func writeUsecaseError(w http.ResponseWriter, err error) {
	if errors.Is(err, usecase.ErrInvalidSession) {
		writeError(w, http.StatusUnauthorized, codeInvalidSession, "session is no longer valid")
		return
	}

	kind := usecase.Classify(err)
	mapped, ok := loginErrorStatus[kind]
	if !ok {
		kind, mapped = usecase.KindUnknown, loginErrorStatus[usecase.KindUnknown]
	}
	writeError(w, mapped.status, string(kind), mapped.message)
}
