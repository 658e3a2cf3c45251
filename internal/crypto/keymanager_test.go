package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptSecret("relayer-api-secret", "correct horse battery")
	require.NoError(t, err)

	secret, err := DecryptSecret(blob, "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "relayer-api-secret", secret)
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := EncryptSecret("relayer-api-secret", "right password")
	require.NoError(t, err)

	_, err = DecryptSecret(blob, "wrong password")
	require.Error(t, err)
}

func TestEncryptRejectsEmptyInputs(t *testing.T) {
	_, err := EncryptSecret("", "password")
	require.Error(t, err)

	_, err = EncryptSecret("secret", "")
	require.Error(t, err)
}

func TestEncryptProducesUniqueBlobs(t *testing.T) {
	a, err := EncryptSecret("secret", "password")
	require.NoError(t, err)
	b, err := EncryptSecret("secret", "password")
	require.NoError(t, err)

	// Fresh salt and nonce every time.
	assert.NotEqual(t, a, b)
}

func TestLoadSecretPrefersRaw(t *testing.T) {
	secret, err := LoadSecret(SecretConfig{RawSecret: "plain"})
	require.NoError(t, err)
	assert.Equal(t, "plain", secret)
}

func TestLoadSecretFromEncryptedFile(t *testing.T) {
	blob, err := EncryptSecret("from-disk", "pw")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "secret.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	secret, err := LoadSecret(SecretConfig{
		EncryptedSecretPath: path,
		SecretPassword:      "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "from-disk", secret)
}

func TestLoadSecretNoSource(t *testing.T) {
	_, err := LoadSecret(SecretConfig{})
	require.Error(t, err)
}
