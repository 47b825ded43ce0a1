// Package static implements an in-memory keyprovider.Provider for
// tests and the CLI demo, modeled on the teacher's
// security/keycrypt.Static secret (a fixed byte blob returned as-is)
// generalized to hold more than one key so callers can exercise
// key-rotation: an old key stays resolvable for decrypting documents
// written before rotation, while GetKey with the current id is used
// for new encryption.
package static

import (
	"context"
	"sync"

	"github.com/vaultdoc/fieldcrypt/errors"
	"github.com/vaultdoc/fieldcrypt/keyprovider"
	"github.com/vaultdoc/fieldcrypt/keyprovider/aescbchmac"
)

// Provider is a keyprovider.Provider backed by in-memory key material.
// It is safe for concurrent use.
type Provider struct {
	mu   sync.RWMutex
	keys map[string][]byte
}

// New constructs a Provider with one registered key.
func New(keyID string, keyMaterial []byte) (*Provider, error) {
	p := &Provider{keys: make(map[string][]byte)}
	if err := p.Add(keyID, keyMaterial); err != nil {
		return nil, err
	}
	return p, nil
}

// Add registers an additional key, e.g. a previous key kept around
// only so documents encrypted before a rotation remain decryptable.
func (p *Provider) Add(keyID string, keyMaterial []byte) error {
	if keyID == "" {
		return errors.E(errors.InvalidArgument, "key id must not be empty")
	}
	if len(keyMaterial) != aescbchmac.KeySize {
		return errors.E(errors.InvalidArgument, "key material must be 64 bytes")
	}
	cp := make([]byte, len(keyMaterial))
	copy(cp, keyMaterial)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys[keyID] = cp
	return nil
}

// GetKey implements keyprovider.Provider.
func (p *Provider) GetKey(ctx context.Context, keyID string, alg keyprovider.Algorithm) (keyprovider.KeyHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.E(errors.Cancelled, "get key", err)
	}
	if !alg.Valid() {
		return nil, errors.E(errors.UnsupportedAlgorithm, "unknown algorithm", errors.New(string(alg)))
	}

	p.mu.RLock()
	keyMaterial, ok := p.keys[keyID]
	p.mu.RUnlock()
	if !ok {
		return nil, keyprovider.ErrKeyUnknown(keyID, nil)
	}
	return aescbchmac.New(keyMaterial)
}
