package kmswrap_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/aws/aws-sdk-go/service/kms/kmsiface"
	"github.com/stretchr/testify/require"

	"github.com/vaultdoc/fieldcrypt/keyprovider"
	"github.com/vaultdoc/fieldcrypt/keyprovider/aescbchmac"
	"github.com/vaultdoc/fieldcrypt/keyprovider/kmswrap"
)

// fakeKMS implements only the subset of kmsiface.KMSAPI this package
// calls; every other method panics if exercised.
type fakeKMS struct {
	kmsiface.KMSAPI
	plaintext []byte
	wantBlob  []byte
}

func (f *fakeKMS) DecryptWithContext(ctx aws.Context, in *kms.DecryptInput, opts ...request.Option) (*kms.DecryptOutput, error) {
	if f.wantBlob != nil {
		if string(in.CiphertextBlob) != string(f.wantBlob) {
			return nil, &unknownBlobError{}
		}
	}
	return &kms.DecryptOutput{Plaintext: f.plaintext}, nil
}

type unknownBlobError struct{}

func (unknownBlobError) Error() string { return "unknown ciphertext blob" }

func TestGetKeyUnwrapsRegisteredBlob(t *testing.T) {
	dek := make([]byte, aescbchmac.KeySize)
	for i := range dek {
		dek[i] = byte(i)
	}
	wrapped := []byte("kms-ciphertext-blob")

	fake := &fakeKMS{plaintext: dek, wantBlob: wrapped}
	p := kmswrap.NewWithClient(fake)
	p.Register("doc-key-1", wrapped)

	handle, err := p.GetKey(context.Background(), "doc-key-1", keyprovider.AlgorithmRandomized)
	require.NoError(t, err)
	require.NotNil(t, handle)
}

func TestGetKeyRejectsUnknownKeyID(t *testing.T) {
	p := kmswrap.NewWithClient(&fakeKMS{})
	_, err := p.GetKey(context.Background(), "missing", keyprovider.AlgorithmRandomized)
	require.Error(t, err)
}

func TestGetKeyRejectsUnknownAlgorithm(t *testing.T) {
	p := kmswrap.NewWithClient(&fakeKMS{})
	p.Register("k1", []byte("blob"))
	_, err := p.GetKey(context.Background(), "k1", keyprovider.Algorithm("nonsense"))
	require.Error(t, err)
}
