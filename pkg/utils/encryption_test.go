package utils

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
}

func TestParseKey(t *testing.T) {
	key, err := ParseKey(testKey())
	require.NoError(t, err)
	assert.Len(t, key, 32)

	_, err = ParseKey("not base64!")
	assert.Error(t, err)
	_, err = ParseKey(base64.StdEncoding.EncodeToString([]byte("too short")))
	assert.Error(t, err)
}

func TestCipher(t *testing.T) {
	key, err := ParseKey(testKey())
	require.NoError(t, err)
	c, err := NewCipher(key)
	require.NoError(t, err)

	a, err := c.Encrypt("a@b.com")
	require.NoError(t, err)
	b, err := c.Encrypt("a@b.com")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "nonces differ")

	plain, err := c.Decrypt(a)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", plain)

	empty, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = c.Decrypt(base64.StdEncoding.EncodeToString([]byte("xx")))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	tampered := []byte(a)
	tampered[len(tampered)-3] ^= 1
	_, err = c.Decrypt(string(tampered))
	assert.Error(t, err)
}
