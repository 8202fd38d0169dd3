package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaceholderEmail(t *testing.T) {
	email := PlaceholderEmail("kakao", "4021993771")
	assert.Equal(t, "kakao_4021993771@social.user", email)

	assert.True(t, (&User{Email: email}).HasPlaceholderEmail())
	assert.False(t, (&User{Email: "ann@example.com"}).HasPlaceholderEmail())
}
