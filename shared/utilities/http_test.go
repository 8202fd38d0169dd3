package utilities

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIPResolver_ClientIP(t *testing.T) {
	resolver, err := NewClientIPResolver([]string{"10.0.0.0/8", "192.168.1.10"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "direct client ignores forwarded headers",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4", "X-Real-IP": "5.6.7.8"},
			remoteAddr: "198.51.100.20:4000",
			want:       "198.51.100.20",
		},
		{
			name:       "single trusted proxy",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			remoteAddr: "10.0.0.2:1234",
			want:       "203.0.113.7",
		},
		{
			name:       "spoofed left-most hop is skipped",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.7, 10.0.0.5"},
			remoteAddr: "10.0.0.2:1234",
			want:       "203.0.113.7",
		},
		{
			name:       "trusted single address",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9"},
			remoteAddr: "192.168.1.10:80",
			want:       "203.0.113.9",
		},
		{
			name:       "every hop trusted",
			headers:    map[string]string{"X-Forwarded-For": "10.1.1.1, 10.0.0.5"},
			remoteAddr: "10.0.0.2:1234",
			want:       "10.1.1.1",
		},
		{
			name:       "garbage hop falls back to connection",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip, 10.0.0.5"},
			remoteAddr: "10.0.0.2:1234",
			want:       "10.0.0.2",
		},
		{
			name:       "real ip from trusted proxy",
			headers:    map[string]string{"X-Real-IP": "198.51.100.4"},
			remoteAddr: "10.0.0.2:1234",
			want:       "198.51.100.4",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.0.2.1",
			want:       "192.0.2.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, resolver.ClientIP(req))
		})
	}
}

func TestClientIPResolver_NoTrustedProxies(t *testing.T) {
	resolver, err := NewClientIPResolver(nil)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")

	assert.Equal(t, "10.0.0.2", resolver.ClientIP(req))
}

func TestNewClientIPResolver_Invalid(t *testing.T) {
	_, err := NewClientIPResolver([]string{"10.0.0.0/33"})
	assert.Error(t, err)

	_, err = NewClientIPResolver([]string{"proxy.internal"})
	assert.Error(t, err)
}
