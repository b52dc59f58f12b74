package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestCipherRoundTrip(t *testing.T) {
	cipher, err := NewCipher(testKeyHex)
	require.NoError(t, err)

	encrypted, err := cipher.Encrypt("ya29.a0AfH6SMB-token")
	require.NoError(t, err)
	assert.NotEqual(t, "ya29.a0AfH6SMB-token", encrypted)

	decrypted, err := cipher.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "ya29.a0AfH6SMB-token", decrypted)
}

func TestCipherEmptyStringPassthrough(t *testing.T) {
	cipher, err := NewCipher(testKeyHex)
	require.NoError(t, err)

	encrypted, err := cipher.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, encrypted)

	decrypted, err := cipher.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, decrypted)
}

func TestCipherNoncesDiffer(t *testing.T) {
	cipher, err := NewCipher(testKeyHex)
	require.NoError(t, err)

	first, err := cipher.Encrypt("same-token")
	require.NoError(t, err)
	second, err := cipher.Encrypt("same-token")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCipherRejectsBadKeys(t *testing.T) {
	_, err := NewCipher("not-hex")
	assert.Error(t, err)

	_, err = NewCipher("abcd")
	assert.Error(t, err)
}

func TestCipherRejectsTamperedCiphertext(t *testing.T) {
	cipher, err := NewCipher(testKeyHex)
	require.NoError(t, err)

	_, err = cipher.Decrypt("bm90IGEgcmVhbCBjaXBoZXJ0ZXh0IGF0IGFsbCE=")
	assert.Error(t, err)

	_, err = cipher.Decrypt("@@@")
	assert.Error(t, err)
}
