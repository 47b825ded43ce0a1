// Package keyprovider defines the key-provider and key-handle
// contract the core consumes (§6): resolving a data-encryption-key id
// and algorithm name to a handle capable of deterministic-length
// authenticated encryption and decryption. Concrete providers live in
// subpackages (static, kmswrap); the AEAD primitive itself lives in
// aescbchmac.
package keyprovider

import (
	"context"

	"github.com/vaultdoc/fieldcrypt/errors"
)

// KeyHandle is a fetched data-encryption key, bound to one algorithm,
// capable of authenticated encryption and decryption into
// caller-supplied buffers. Implementations must make CiphertextLength
// and PlaintextLength pure functions of their input length, since the
// core's deterministic-length invariant (§8, property 4) depends on
// it.
type KeyHandle interface {
	// CiphertextLength returns the number of bytes Encrypt will write
	// for a plaintext of length plaintextLen.
	CiphertextLength(plaintextLen int) int

	// Encrypt authenticated-encrypts plaintext into dst starting at
	// offset, returning the number of bytes written. dst must have at
	// least offset+CiphertextLength(len(plaintext)) bytes.
	Encrypt(ctx context.Context, plaintext []byte, dst []byte, offset int) (int, error)

	// PlaintextLength returns an upper bound on the number of bytes
	// Decrypt will write for a ciphertext of length ciphertextLen; the
	// exact count is Decrypt's return value.
	PlaintextLength(ciphertextLen int) int

	// Decrypt authenticated-decrypts ciphertext into dst starting at
	// offset, returning the number of bytes written. It returns an
	// AuthFailed error if the authentication tag does not match.
	Decrypt(ctx context.Context, ciphertext []byte, dst []byte, offset int) (int, error)
}

// Algorithm names the two algorithm enum values named in §3 of the
// design. Both are backed by the same AES-CBC+HMAC primitive
// (aescbchmac); the distinction that matters to the orchestrator is
// whether per-field, streaming encryption is supported.
type Algorithm string

const (
	AlgorithmLegacy     Algorithm = "legacy_aead_cbc_hmac"
	AlgorithmRandomized Algorithm = "randomized_aead_cbc_hmac"
)

// Valid reports whether alg is one of the enumerated algorithm names.
func (alg Algorithm) Valid() bool {
	return alg == AlgorithmLegacy || alg == AlgorithmRandomized
}

// Provider resolves a data-encryption-key id and algorithm to a
// handle. Implementations must be safe for concurrent use (§5: "the
// key provider is shared and must be safe for concurrent calls").
type Provider interface {
	GetKey(ctx context.Context, keyID string, alg Algorithm) (KeyHandle, error)
}

// ErrKeyUnknown wraps a lookup miss as the domain InvalidArgument
// kind; keyID is not included in the message to avoid leaking key
// material shape into logs.
func ErrKeyUnknown(keyID string, cause error) error {
	return errors.E(errors.InvalidArgument, "key id not found", cause)
}

// ErrAuthFailed wraps an authentication-tag mismatch as the domain
// AuthFailed kind.
func ErrAuthFailed(cause error) error {
	return errors.E(errors.AuthFailed, "authentication failed", cause)
}
