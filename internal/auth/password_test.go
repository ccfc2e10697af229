package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	t.Parallel()
	h := NewHasher(bcrypt.MinCost)

	digest, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", digest)

	assert.True(t, h.Verify("correct horse battery staple", digest))
	assert.False(t, h.Verify("wrong", digest))
	assert.False(t, h.Verify("", digest))
	assert.False(t, h.Verify("correct horse battery staple", "not-a-digest"))
}

func TestHasher_SaltedDigests(t *testing.T) {
	t.Parallel()
	h := NewHasher(bcrypt.MinCost)

	a, err := h.Hash("pw")
	require.NoError(t, err)
	b, err := h.Hash("pw")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNewHasher_FallsBackToDefaultCost(t *testing.T) {
	t.Parallel()
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
}
