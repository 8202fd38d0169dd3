package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashToken(t *testing.T) {
	hash, err := HashToken("refresh-token")
	require.NoError(t, err)
	assert.NotContains(t, hash, "refresh-token")

	ok, err := VerifyToken("refresh-token", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyToken("another-token", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashToken_Salted(t *testing.T) {
	first, err := HashToken("same")
	require.NoError(t, err)
	second, err := HashToken("same")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint("code"), Fingerprint("code"))
	assert.NotEqual(t, Fingerprint("code"), Fingerprint("code2"))
	assert.Len(t, Fingerprint("code"), 64)
}
