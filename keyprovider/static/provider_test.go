package static_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vaultdoc/fieldcrypt/keyprovider"
	"github.com/vaultdoc/fieldcrypt/keyprovider/aescbchmac"
	"github.com/vaultdoc/fieldcrypt/keyprovider/static"
)

func key(fill byte) []byte {
	k := make([]byte, aescbchmac.KeySize)
	for i := range k {
		k[i] = fill
	}
	return k
}

func TestGetKeyReturnsRegisteredKey(t *testing.T) {
	p, err := static.New("k1", key(1))
	require.NoError(t, err)

	h, err := p.GetKey(context.Background(), "k1", keyprovider.AlgorithmRandomized)
	require.NoError(t, err)
	require.NotNil(t, h)
}

func TestGetKeyRejectsUnknownKeyID(t *testing.T) {
	p, err := static.New("k1", key(1))
	require.NoError(t, err)

	_, err = p.GetKey(context.Background(), "missing", keyprovider.AlgorithmRandomized)
	require.Error(t, err)
}

func TestRotationKeepsOldKeyResolvable(t *testing.T) {
	p, err := static.New("k1", key(1))
	require.NoError(t, err)
	require.NoError(t, p.Add("k0", key(0)))

	_, err = p.GetKey(context.Background(), "k0", keyprovider.AlgorithmRandomized)
	require.NoError(t, err)
	_, err = p.GetKey(context.Background(), "k1", keyprovider.AlgorithmRandomized)
	require.NoError(t, err)
}

func TestNewRejectsBadKeySize(t *testing.T) {
	_, err := static.New("k1", []byte("too short"))
	require.Error(t, err)
}

func TestNewRejectsEmptyKeyID(t *testing.T) {
	_, err := static.New("", key(1))
	require.Error(t, err)
}
