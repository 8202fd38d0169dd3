package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ann@example.com", "a***@example.com"},
		{"x@y.io", "x***@y.io"},
		{"no-at-sign", "***"},
		{"@example.com", "***"},
		{"", "***"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskEmail(tt.in), tt.in)
	}
}

func TestNew_Level(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, New("auth-service", "debug", false).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New("auth-service", "", true).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New("auth-service", "chatty", false).GetLevel())
}
