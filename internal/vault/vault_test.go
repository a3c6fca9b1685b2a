package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMasterKey = "test-master-key-for-unit-tests"

func TestSealUnsealRoundTrip(t *testing.T) {
	v, err := New(testMasterKey)
	require.NoError(t, err)

	plaintext := []byte(`{"api_key":"sk_live_abc123"}`)
	sealed, err := v.Seal("tenant-1", "stripe", plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	opened, err := v.Unseal("tenant-1", "stripe", sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestUnsealWrongTenantFails(t *testing.T) {
	v, err := New(testMasterKey)
	require.NoError(t, err)

	sealed, err := v.Seal("tenant-1", "stripe", []byte("secret"))
	require.NoError(t, err)

	// Swapping a row to another tenant must not disclose the plaintext
	_, err = v.Unseal("tenant-2", "stripe", sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestUnsealWrongIntegrationTypeFails(t *testing.T) {
	v, err := New(testMasterKey)
	require.NoError(t, err)

	sealed, err := v.Seal("tenant-1", "stripe", []byte("secret"))
	require.NoError(t, err)

	_, err = v.Unseal("tenant-1", "twilio", sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestUnsealTamperedCiphertextFails(t *testing.T) {
	v, err := New(testMasterKey)
	require.NoError(t, err)

	sealed, err := v.Seal("tenant-1", "stripe", []byte("secret"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = v.Unseal("tenant-1", "stripe", sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestUnsealTruncatedCiphertextFails(t *testing.T) {
	v, err := New(testMasterKey)
	require.NoError(t, err)

	_, err = v.Unseal("tenant-1", "stripe", []byte("short"))
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = v.Unseal("tenant-1", "stripe", nil)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestUnsealDifferentMasterKeyFails(t *testing.T) {
	v1, err := New(testMasterKey)
	require.NoError(t, err)
	v2, err := New("a-rotated-master-key")
	require.NoError(t, err)

	sealed, err := v1.Seal("tenant-1", "stripe", []byte("secret"))
	require.NoError(t, err)

	_, err = v2.Unseal("tenant-1", "stripe", sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestNewRequiresMasterKey(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrNoMasterKey)
}

func TestSealIsNonDeterministic(t *testing.T) {
	v, err := New(testMasterKey)
	require.NoError(t, err)

	a, err := v.Seal("tenant-1", "stripe", []byte("secret"))
	require.NoError(t, err)
	b, err := v.Seal("tenant-1", "stripe", []byte("secret"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
