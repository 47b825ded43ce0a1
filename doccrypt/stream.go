// Stream Processor (C6): rewrites JSON by driving a streaming
// tokenizer over the input and a streaming writer over the output,
// never materializing the whole document, using json-iterator/go's
// pooled Iterator/Stream pair as the concrete "JSON reader/writer" and
// "byte-pool / stream manager" collaborators named in §6.
package doccrypt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/vaultdoc/fieldcrypt/compressadapter"
	"github.com/vaultdoc/fieldcrypt/errors"
	"github.com/vaultdoc/fieldcrypt/keyprovider"
	"github.com/vaultdoc/fieldcrypt/log"
	"github.com/vaultdoc/fieldcrypt/pool"
)

var jsonCfg = jsoniter.ConfigCompatibleWithStandardLibrary

// findSidecar pre-scans input for the sidecar object without
// materializing the rest of the document, per §4.6's decrypt note
// ("the processor discovers the sidecar only after reading the whole
// object... performs one pre-pass to locate and parse it"). A nil,nil
// result means the document has no sidecar property at all.
func findSidecar(input []byte) (*Sidecar, error) {
	iter := jsonCfg.BorrowIterator(input)
	defer jsonCfg.ReturnIterator(iter)

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return nil, errors.E(errors.FormatViolation, "top-level JSON value is not an object")
	}
	for field := iter.ReadObject(); field != ""; field = iter.ReadObject() {
		if field == SidecarKey {
			raw := iter.SkipAndReturnBytes()
			var s Sidecar
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, errors.E(errors.FormatViolation, "parsing sidecar", err)
			}
			return &s, nil
		}
		iter.Skip()
	}
	if iter.Error != nil && iter.Error != io.EOF {
		return nil, errors.E(errors.FormatViolation, "parsing input document", iter.Error)
	}
	return nil, nil
}

// encryptStream implements the C6 encrypt direction for the per-value
// algorithm. Legacy mode is never streamed (§9); callers route that
// case to legacy.go before reaching here.
func encryptStream(ctx context.Context, input []byte, opts EncryptionOptions, provider keyprovider.Provider) (_ []byte, err error) {
	handle, err := provider.GetKey(ctx, opts.DataEncryptionKeyID, opts.Algorithm)
	if err != nil {
		return nil, err
	}
	pathNames := make(map[string]bool, len(opts.PathsToEncrypt))
	for _, p := range opts.PathsToEncrypt {
		pathNames[strings.TrimPrefix(p, "/")] = true
	}

	scope := pool.NewScope(nil)
	defer errors.CleanUp(scope.Release, &err)

	iter := jsonCfg.BorrowIterator(input)
	defer jsonCfg.ReturnIterator(iter)
	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return nil, errors.E(errors.FormatViolation, "top-level JSON value is not an object")
	}

	var buf bytes.Buffer
	stream := jsonCfg.BorrowStream(&buf)
	defer jsonCfg.ReturnStream(stream)

	stream.WriteObjectStart()
	wroteField := false
	encryptedPaths := make([]string, 0, len(opts.PathsToEncrypt))
	compressedPaths := map[string]int{}

	for field := iter.ReadObject(); field != ""; field = iter.ReadObject() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.E(errors.Cancelled, "encrypt", ctxErr)
		}
		raw := iter.SkipAndReturnBytes()
		if wroteField {
			stream.WriteMore()
		}
		wroteField = true
		stream.WriteObjectField(field)

		path := "/" + field
		if !pathNames[field] || string(bytes.TrimSpace(raw)) == "null" {
			stream.WriteRaw(string(raw))
			continue
		}
		var v interface{}
		if err := unmarshalPreservingNumbers(raw, &v); err != nil {
			return nil, errors.E(errors.FormatViolation, "parsing value at "+path, err)
		}
		log.Debug.Printf("encryptStream: encrypting %s", log.Property(path))
		framed, compressed, origLen, err := encryptValue(ctx, path, v, opts.Compression, handle, scope)
		if err != nil {
			log.Error.Printf("encryptStream: encrypting failed %s: %v", log.Property(path), err)
			return nil, errors.E("encrypting path "+path, err)
		}
		stream.WriteString(base64.StdEncoding.EncodeToString(framed))
		encryptedPaths = append(encryptedPaths, path)
		if compressed {
			compressedPaths[path] = origLen
		}
	}
	if iter.Error != nil && iter.Error != io.EOF {
		return nil, errors.E(errors.FormatViolation, "parsing input document", iter.Error)
	}

	if len(encryptedPaths) == 0 {
		// Every requested path was absent or null: nothing was
		// actually encrypted, so the sidecar is omitted entirely and
		// the document comes back unchanged (§8, scenario S4).
		return append([]byte(nil), input...), nil
	}

	version := FormatVersionNoCompression
	if len(compressedPaths) > 0 {
		version = FormatVersionCompressed
	}
	compAlg := opts.Compression.Algorithm
	if compAlg == "" {
		compAlg = compressadapter.None
	}
	sidecar := Sidecar{
		EncryptionFormatVersion: version,
		EncryptionAlgorithm:     string(opts.Algorithm),
		DataEncryptionKeyId:     opts.DataEncryptionKeyID,
		EncryptedPaths:          encryptedPaths,
		CompressionAlgorithm:    string(compAlg),
	}
	if len(compressedPaths) > 0 {
		sidecar.CompressedEncryptedPaths = compressedPaths
	}
	sidecarBytes, err := json.Marshal(sidecar)
	if err != nil {
		return nil, errors.E(errors.Internal, "marshaling sidecar", err)
	}
	if wroteField {
		stream.WriteMore()
	}
	stream.WriteObjectField(SidecarKey)
	stream.WriteRaw(string(sidecarBytes))
	stream.WriteObjectEnd()
	if err := stream.Flush(); err != nil {
		return nil, errors.E(errors.Internal, "flushing output stream", err)
	}
	return append([]byte(nil), buf.Bytes()...), nil
}

// decryptStream implements the C6 decrypt direction for the per-value
// formats (3 and 4), given a sidecar already located by findSidecar.
func decryptStream(ctx context.Context, input []byte, sidecar *Sidecar, provider keyprovider.Provider) (_ []byte, _ *DecryptionReport, err error) {
	handle, err := provider.GetKey(ctx, sidecar.DataEncryptionKeyId, keyprovider.Algorithm(sidecar.EncryptionAlgorithm))
	if err != nil {
		return nil, nil, err
	}
	pathNames := make(map[string]bool, len(sidecar.EncryptedPaths))
	for _, p := range sidecar.EncryptedPaths {
		pathNames[strings.TrimPrefix(p, "/")] = true
	}

	scope := pool.NewScope(nil)
	defer errors.CleanUp(scope.Release, &err)

	iter := jsonCfg.BorrowIterator(input)
	defer jsonCfg.ReturnIterator(iter)
	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return nil, nil, errors.E(errors.FormatViolation, "top-level JSON value is not an object")
	}

	var buf bytes.Buffer
	stream := jsonCfg.BorrowStream(&buf)
	defer jsonCfg.ReturnStream(stream)

	stream.WriteObjectStart()
	wroteField := false

	for field := iter.ReadObject(); field != ""; field = iter.ReadObject() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, errors.E(errors.Cancelled, "decrypt", ctxErr)
		}
		if field == SidecarKey {
			iter.Skip()
			continue
		}
		raw := iter.SkipAndReturnBytes()
		if wroteField {
			stream.WriteMore()
		}
		wroteField = true
		stream.WriteObjectField(field)

		if !pathNames[field] {
			stream.WriteRaw(string(raw))
			continue
		}
		path := "/" + field
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, nil, errors.E(errors.FormatViolation, "ciphertext at "+path+" is not a JSON string", err)
		}
		framed, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, nil, errors.E(errors.FormatViolation, "invalid base64 at "+path, err)
		}
		log.Debug.Printf("decryptStream: decrypting %s", log.Property(path))
		v, wasCompressed, origLen, err := decryptValue(ctx, path, framed, handle, scope)
		if err != nil {
			log.Error.Printf("decryptStream: decrypting failed %s: %v", log.Property(path), err)
			return nil, nil, errors.E("decrypting path "+path, err)
		}
		if err := checkCompressionConsistency(path, wasCompressed, origLen, sidecar.CompressedEncryptedPaths); err != nil {
			return nil, nil, err
		}
		if err := writeValue(stream, v); err != nil {
			return nil, nil, errors.E(errors.Internal, "writing decrypted value at "+path, err)
		}
	}
	if iter.Error != nil && iter.Error != io.EOF {
		return nil, nil, errors.E(errors.FormatViolation, "parsing input document", iter.Error)
	}
	stream.WriteObjectEnd()
	if err := stream.Flush(); err != nil {
		return nil, nil, errors.E(errors.Internal, "flushing output stream", err)
	}

	report := &DecryptionReport{
		PathsDecrypted: sidecar.EncryptedPaths,
		KeyID:          sidecar.DataEncryptionKeyId,
		Algorithm:      sidecar.EncryptionAlgorithm,
	}
	return append([]byte(nil), buf.Bytes()...), report, nil
}

// writeValue writes a value recovered by decryptValue to the output
// stream, preserving its JSON type exactly as typedvalue.Decode
// produced it.
func writeValue(stream *jsoniter.Stream, v interface{}) error {
	switch val := v.(type) {
	case nil:
		stream.WriteNil()
	case bool:
		stream.WriteBool(val)
	case int64:
		stream.WriteInt64(val)
	case float64:
		stream.WriteFloat64(val)
	case string:
		stream.WriteString(val)
	case []interface{}, map[string]interface{}:
		data, err := json.Marshal(val)
		if err != nil {
			return err
		}
		stream.WriteRaw(string(data))
	default:
		return errors.E(errors.Internal, "unsupported decrypted value type")
	}
	return stream.Error
}
