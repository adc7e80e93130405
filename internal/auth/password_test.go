package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hashed, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hashed)

	assert.True(t, h.Verify("secret1", hashed))
	assert.False(t, h.Verify("secret2", hashed))
	assert.False(t, h.Verify("", hashed))
	assert.False(t, h.Verify(strings.Repeat("a", 200), hashed))
}

func TestBcryptHasher_Salted(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("same-password")
	require.NoError(t, err)
	second, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("same-password", first))
	assert.True(t, h.Verify("same-password", second))
}

func TestBcryptHasher_InvalidInput(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	_, err := h.Hash("")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.Hash(strings.Repeat("x", maxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBcryptHasher_MalformedHashReturnsFalse(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	assert.False(t, h.Verify("secret1", ""))
	assert.False(t, h.Verify("secret1", "not-a-bcrypt-hash"))
	assert.False(t, h.Verify("secret1", "$2a$04$short"))
}

func TestBcryptHasher_OverlongSharingPrefixRejected(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	base := strings.Repeat("p", maxPasswordBytes)

	hashed, err := h.Hash(base)
	require.NoError(t, err)

	assert.True(t, h.Verify(base, hashed))
	assert.False(t, h.Verify(base+"extra", hashed))
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).cost)
}
