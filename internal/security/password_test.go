package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasherHashNeverEqualsPlaintext(t *testing.T) {
	h := NewHasher()

	for _, plain := range []string{"secret1", "hunter22", "p@ss word"} {
		hash, err := h.Hash(plain)
		require.NoError(t, err)
		assert.NotEqual(t, plain, hash)
		assert.True(t, IsHash(hash))

		cost, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, Cost, cost)
	}
}

func TestHasherSaltsEachHash(t *testing.T) {
	h := NewHasher()

	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHasherVerify(t *testing.T) {
	h := NewHasher()
	hash, err := h.Hash("correct horse")
	require.NoError(t, err)

	ok, err := h.Verify(hash, "correct horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(hash, "wrong horse")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasherVerifyMalformedHashIsAnError(t *testing.T) {
	h := NewHasher()

	ok, err := h.Verify("not-a-hash", "whatever")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestIsHash(t *testing.T) {
	assert.False(t, IsHash(""))
	assert.False(t, IsHash("plaintext-password"))
}
