package doccrypt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vaultdoc/fieldcrypt/keyprovider"
	"github.com/vaultdoc/fieldcrypt/keyprovider/static"
)

// testKeyID/testKeyMaterial back every test provider in this package;
// the material is a fixed 64-byte blob, not randomly generated, so
// every provider built here resolves the same key. Ciphertexts still
// differ from run to run, since each encryption draws a random IV.
const testKeyID = "k1"

var testKeyMaterial = []byte("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")

func newTestProvider(t *testing.T) keyprovider.Provider {
	t.Helper()
	require.Len(t, testKeyMaterial, 64)
	p, err := static.New(testKeyID, testKeyMaterial)
	require.NoError(t, err)
	return p
}
