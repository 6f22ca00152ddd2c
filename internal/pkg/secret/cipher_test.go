package secret

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	sealed, err := c.Encrypt("APP_USR-token")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "APP_USR")

	plain, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "APP_USR-token", plain)
}

func TestCipherUsesFreshNonce(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	a, err := c.Encrypt("same")
	require.NoError(t, err)
	b, err := c.Encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCipherRejectsBadInput(t *testing.T) {
	_, err := NewCipher("short")
	assert.ErrorIs(t, err, ErrInvalidKey)

	c, err := NewCipher(testKey)
	require.NoError(t, err)

	_, err = c.Decrypt("not base64!")
	assert.ErrorIs(t, err, ErrMalformedCipherText)

	sealed, err := c.Encrypt("value")
	require.NoError(t, err)
	tampered := strings.Replace(sealed, sealed[len(sealed)-4:len(sealed)-2], "AA", 1)
	if tampered != sealed {
		_, err = c.Decrypt(tampered)
		assert.Error(t, err)
	}
}
