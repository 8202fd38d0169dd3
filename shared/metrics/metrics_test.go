package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordLogin(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("google", "success", 120*time.Millisecond)
	c.RecordLogin("google", "success", 80*time.Millisecond)
	c.RecordLogin("kakao", "ACCOUNT_SUSPENDED", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.logins.WithLabelValues("google", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.logins.WithLabelValues("kakao", "ACCOUNT_SUSPENDED")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.loginLatency))
}

func TestCollector_RecordDuplicateCallback(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordDuplicateCallback("naver")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.duplicateCallbacks.WithLabelValues("naver")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordLogin("apple", "success", time.Millisecond)

	server := httptest.NewServer(Handler(reg))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `auth_social_logins_total{outcome="success",provider="apple"} 1`)
}
