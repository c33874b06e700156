package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	ResetStateKeyForTesting()
	t.Setenv("ATLAS_STATE_KEY", "test-key-material")
	t.Cleanup(ResetStateKeyForTesting)

	plaintext := []byte("an access token worth protecting")

	sealed, err := Seal(plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, sealed)

	opened, err := Open(sealed)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestSealProducesUniqueCiphertexts(t *testing.T) {
	ResetStateKeyForTesting()
	t.Setenv("ATLAS_STATE_KEY", "test-key-material")
	t.Cleanup(ResetStateKeyForTesting)

	a, err := Seal([]byte("same input"))
	require.NoError(t, err)
	b, err := Seal([]byte("same input"))
	require.NoError(t, err)

	// Random nonce per seal
	require.NotEqual(t, a, b)
}

func TestOpenRejectsTampering(t *testing.T) {
	ResetStateKeyForTesting()
	t.Setenv("ATLAS_STATE_KEY", "test-key-material")
	t.Cleanup(ResetStateKeyForTesting)

	sealed, err := Seal([]byte("payload"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xFF

	_, err = Open(sealed)
	require.Error(t, err)
}

func TestOpenRejectsShortInput(t *testing.T) {
	ResetStateKeyForTesting()
	t.Setenv("ATLAS_STATE_KEY", "test-key-material")
	t.Cleanup(ResetStateKeyForTesting)

	_, err := Open([]byte("short"))
	require.Error(t, err)
}
