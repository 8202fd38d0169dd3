package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authtypes "github.com/vasapolrittideah/social-login-api/services/auth-service/pkg/types"
)

func TestClient_RefreshSingleFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/auth/refresh", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "old-refresh", body["refreshToken"])

		<-release

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(authtypes.RefreshResult{
			Tokens: authtypes.Tokens{AccessToken: "new-access", RefreshToken: "new-refresh"},
		})
	}))
	defer server.Close()

	client := New(server.URL, server.Client(), authtypes.Tokens{AccessToken: "old-access", RefreshToken: "old-refresh"})

	const callers = 10
	var wg sync.WaitGroup
	results := make([]authtypes.Tokens, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = client.Refresh(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, "new-access", results[i].AccessToken)
	}
	assert.Equal(t, "new-refresh", client.Tokens().RefreshToken)
}

func TestClient_RefreshSlotClearedAfterSettle(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(authtypes.RefreshResult{
			Tokens: authtypes.Tokens{AccessToken: "access", RefreshToken: "refresh-" + string(rune('0'+n))},
		})
	}))
	defer server.Close()

	client := New(server.URL, server.Client(), authtypes.Tokens{RefreshToken: "refresh-0"})

	_, err := client.Refresh(context.Background())
	require.NoError(t, err)
	_, err = client.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "refresh-2", client.Tokens().RefreshToken)
}

func TestClient_RefreshFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(authtypes.ErrorResponse{Code: "INVALID_SESSION", Message: "session is no longer valid"})
	}))
	defer server.Close()

	client := New(server.URL, server.Client(), authtypes.Tokens{RefreshToken: "stale"})

	_, err := client.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.Equal(t, "stale", client.Tokens().RefreshToken)
}

func TestClient_RefreshWithoutToken(t *testing.T) {
	client := New("http://unused", nil, authtypes.Tokens{})

	_, err := client.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoRefreshToken)
}
