package doccrypt

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/vaultdoc/fieldcrypt/compressadapter"
	"github.com/vaultdoc/fieldcrypt/errors"
	"github.com/vaultdoc/fieldcrypt/keyprovider"
	"github.com/vaultdoc/fieldcrypt/log"
	"github.com/vaultdoc/fieldcrypt/pool"
)

// encryptLegacyMap implements format version 2: the named properties
// are stripped out of doc into a sub-object, which is serialized and
// encrypted as a single blob stored in the sidecar's EncryptedData.
// Legacy mode has no compression support and is not on the streaming
// path (§9).
func encryptLegacyMap(ctx context.Context, doc map[string]interface{}, opts EncryptionOptions, provider keyprovider.Provider) (_ *Sidecar, err error) {
	handle, err := provider.GetKey(ctx, opts.DataEncryptionKeyID, opts.Algorithm)
	if err != nil {
		return nil, err
	}

	sub := make(map[string]interface{})
	encryptedPaths := make([]string, 0, len(opts.PathsToEncrypt))
	for _, p := range opts.PathsToEncrypt {
		name := strings.TrimPrefix(p, "/")
		v, ok := doc[name]
		if !ok || v == nil {
			continue
		}
		sub[name] = v
		encryptedPaths = append(encryptedPaths, p)
		delete(doc, name)
		log.Debug.Printf("encryptLegacyMap: staged %s", log.Property(p))
	}

	raw, err := json.Marshal(sub)
	if err != nil {
		return nil, errors.E(errors.Internal, "serializing legacy sub-object", err)
	}

	scope := pool.NewScope(nil)
	defer errors.CleanUp(scope.Release, &err)

	ciphertextLen := handle.CiphertextLength(len(raw))
	dst := scope.Rent(ciphertextLen)[:ciphertextLen]
	n, err := handle.Encrypt(ctx, raw, dst, 0)
	if err != nil {
		return nil, err
	}

	return &Sidecar{
		EncryptionFormatVersion: FormatVersionLegacy,
		EncryptionAlgorithm:     string(opts.Algorithm),
		DataEncryptionKeyId:     opts.DataEncryptionKeyID,
		EncryptedData:           append([]byte(nil), dst[:n]...),
		EncryptedPaths:          encryptedPaths,
		CompressionAlgorithm:    string(compressadapter.None),
	}, nil
}

// decryptLegacyMap is the inverse: decrypt the sidecar's EncryptedData
// blob and merge its properties back into doc.
func decryptLegacyMap(ctx context.Context, doc map[string]interface{}, sidecar *Sidecar, provider keyprovider.Provider) (err error) {
	handle, err := provider.GetKey(ctx, sidecar.DataEncryptionKeyId, keyprovider.Algorithm(sidecar.EncryptionAlgorithm))
	if err != nil {
		return err
	}

	scope := pool.NewScope(nil)
	defer errors.CleanUp(scope.Release, &err)

	plaintextLen := handle.PlaintextLength(len(sidecar.EncryptedData))
	dst := scope.Rent(plaintextLen)[:plaintextLen]
	n, err := handle.Decrypt(ctx, sidecar.EncryptedData, dst, 0)
	if err != nil {
		return err
	}

	var sub map[string]interface{}
	if err := unmarshalPreservingNumbers(dst[:n], &sub); err != nil {
		return errors.E(errors.FormatViolation, "parsing legacy plaintext sub-object", err)
	}
	for name, v := range sub {
		doc[name] = v
	}
	return nil
}
