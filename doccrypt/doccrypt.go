// Package doccrypt is the orchestrator: it validates a request, builds
// the sidecar metadata object, dispatches by format version, and owns
// the public API of the codec. The per-property pipeline itself
// (typed-value encode, optional compression, framing, encryption) is
// shared by the two processor variants in this package: the Tree
// Processor (pipeline.go/legacy.go/tree.go, mutating an in-memory
// object) and the Stream Processor (stream.go, token-by-token
// rewriting with pooled buffers).
package doccrypt

import (
	"strings"

	"github.com/vaultdoc/fieldcrypt/compressadapter"
	"github.com/vaultdoc/fieldcrypt/errors"
	"github.com/vaultdoc/fieldcrypt/keyprovider"
)

// SidecarKey is the reserved top-level property under which encryption
// metadata is written on encrypt and from which it is read and removed
// on decrypt.
const SidecarKey = "_ei"

// ReservedIDPath is the one top-level path that can never be named in
// an encryption request.
const ReservedIDPath = "/id"

// Format version dispatch (§4.7).
const (
	FormatVersionLegacy        = 2 // legacy_aead_cbc_hmac, whole-object
	FormatVersionNoCompression = 3 // randomized_aead_cbc_hmac, per-value, nothing compressed
	FormatVersionCompressed    = 4 // randomized_aead_cbc_hmac, per-value, at least one compressed
)

// EncryptionOptions is the immutable parameter set for one Encrypt
// call (§3, "Encryption request parameters").
type EncryptionOptions struct {
	DataEncryptionKeyID string
	Algorithm            keyprovider.Algorithm
	PathsToEncrypt       []string
	Compression          compressadapter.Options
}

// Validate runs the request-shape checks of §7 ahead of any I/O,
// separable from Encrypt so callers can validate at config-load time
// (the orchestrator's Idle -> Validating state, made directly
// callable).
func (o EncryptionOptions) Validate() error {
	if o.DataEncryptionKeyID == "" {
		return errors.E(errors.InvalidArgument, "data encryption key id must not be empty")
	}
	if o.Algorithm == "" {
		return errors.E(errors.InvalidArgument, "algorithm must not be empty")
	}
	if !o.Algorithm.Valid() {
		return errors.E(errors.UnsupportedAlgorithm, "unknown algorithm", errors.New(string(o.Algorithm)))
	}
	seen := make(map[string]bool, len(o.PathsToEncrypt))
	for _, p := range o.PathsToEncrypt {
		if err := validatePath(p); err != nil {
			return err
		}
		// OQ3: duplicates are rejected regardless of validation order.
		if seen[p] {
			return errors.E(errors.InvalidPath, "duplicate path", errors.New(p))
		}
		seen[p] = true
	}
	if o.Compression.Algorithm != "" {
		if _, err := compressadapter.Byte(o.Compression.Algorithm); err != nil {
			return err
		}
	}
	return nil
}

func validatePath(p string) error {
	if !strings.HasPrefix(p, "/") {
		return errors.E(errors.InvalidPath, "path must start with /", errors.New(p))
	}
	if strings.Count(p, "/") > 1 {
		return errors.E(errors.InvalidPath, "path must name a top-level property", errors.New(p))
	}
	if len(p) <= 1 {
		return errors.E(errors.InvalidPath, "path must name a property", errors.New(p))
	}
	if p == ReservedIDPath {
		return errors.E(errors.InvalidPath, "/id is reserved and can never be encrypted")
	}
	return nil
}

// Sidecar is the metadata object written under SidecarKey (§3).
type Sidecar struct {
	EncryptionFormatVersion  int            `json:"EncryptionFormatVersion"`
	EncryptionAlgorithm      string         `json:"EncryptionAlgorithm"`
	DataEncryptionKeyId      string         `json:"DataEncryptionKeyId"`
	EncryptedData            []byte         `json:"EncryptedData,omitempty"`
	EncryptedPaths           []string       `json:"EncryptedPaths"`
	CompressionAlgorithm     string         `json:"CompressionAlgorithm"`
	CompressedEncryptedPaths map[string]int `json:"CompressedEncryptedPaths,omitempty"`
}

// DecryptionReport is returned alongside the recovered document,
// telling the caller what was decrypted and under which key and
// algorithm (the algorithm field supplements §6's named report shape,
// per SPEC_FULL §12).
type DecryptionReport struct {
	PathsDecrypted []string
	KeyID          string
	Algorithm      string
}
