// Package kmswrap implements a keyprovider.Provider backed by AWS KMS,
// unwrapping a stored, KMS-encrypted data-encryption key the way the
// teacher's security/keycrypt/kms package unwraps secrets: a data key
// is generated once (outside this package, at provisioning time),
// encrypted under a KMS master key, and only the encrypted blob is
// kept at rest; GetKey asks KMS to decrypt it back to usable key
// material on every call.
package kmswrap

import (
	"context"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/aws/aws-sdk-go/service/kms/kmsiface"

	"github.com/vaultdoc/fieldcrypt/errors"
	"github.com/vaultdoc/fieldcrypt/keyprovider"
	"github.com/vaultdoc/fieldcrypt/keyprovider/aescbchmac"
)

// Provider resolves a key id to a data-encryption key by decrypting a
// stored, KMS-wrapped blob registered for that id.
type Provider struct {
	svc   kmsiface.KMSAPI
	blobs map[string][]byte
}

// New constructs a Provider using the given session's default region.
// Use NewWithClient to inject a kmsiface.KMSAPI directly (tests use a
// fake implementing that interface).
func New(sess *session.Session) *Provider {
	return NewWithClient(kms.New(sess))
}

// NewWithClient constructs a Provider around an explicit KMS client.
func NewWithClient(svc kmsiface.KMSAPI) *Provider {
	return &Provider{svc: svc, blobs: make(map[string][]byte)}
}

// Register associates keyID with the KMS-encrypted data-key blob that
// GetKey will unwrap for it. Typically populated once at startup from
// a configuration or secrets store, not on the request hot path.
func (p *Provider) Register(keyID string, wrappedDataKey []byte) {
	p.blobs[keyID] = wrappedDataKey
}

// GetKey implements keyprovider.Provider.
func (p *Provider) GetKey(ctx context.Context, keyID string, alg keyprovider.Algorithm) (keyprovider.KeyHandle, error) {
	if !alg.Valid() {
		return nil, errors.E(errors.UnsupportedAlgorithm, "unknown algorithm", errors.New(string(alg)))
	}
	wrapped, ok := p.blobs[keyID]
	if !ok {
		return nil, keyprovider.ErrKeyUnknown(keyID, nil)
	}
	out, err := p.svc.DecryptWithContext(ctx, &kms.DecryptInput{
		CiphertextBlob: wrapped,
	})
	if err != nil {
		if awsErr, ok := err.(awserr.Error); ok {
			return nil, errors.E(errors.Internal, "KMS decrypt: "+awsErr.Code(), err)
		}
		return nil, errors.E(errors.Internal, "KMS decrypt", err)
	}
	return aescbchmac.New(out.Plaintext)
}
