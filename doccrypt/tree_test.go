package doccrypt_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/require"

	"github.com/vaultdoc/fieldcrypt/compressadapter"
	"github.com/vaultdoc/fieldcrypt/doccrypt"
	"github.com/vaultdoc/fieldcrypt/keyprovider"
)

func parseDoc(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&doc))
	return doc
}

// TestTreeRoundTrip exercises property 1 (round-trip) via the Tree
// Processor entry points directly, over an already-parsed document.
func TestTreeRoundTrip(t *testing.T) {
	provider := newTestProvider(t)
	doc := parseDoc(t, []byte(`{"id":"1","pk":"a","s":"hello","n":42,"a":[1,2,3],"o":{"k":"v"}}`))
	opts := doccrypt.EncryptionOptions{
		DataEncryptionKeyID: testKeyID,
		Algorithm:           keyprovider.AlgorithmRandomized,
		PathsToEncrypt:      []string{"/s", "/n", "/a", "/o"},
	}

	encrypted, err := doccrypt.EncryptTree(context.Background(), doc, opts, provider)
	require.NoError(t, err)
	require.Contains(t, encrypted, doccrypt.SidecarKey)

	decrypted, report, err := doccrypt.DecryptTree(context.Background(), encrypted, provider)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"/s", "/n", "/a", "/o"}, report.PathsDecrypted)

	original := parseDoc(t, []byte(`{"id":"1","pk":"a","s":"hello","n":42,"a":[1,2,3],"o":{"k":"v"}}`))
	require.Empty(t, deep.Equal(normalizeNumbers(original), normalizeNumbers(decrypted)))
}

// TestTreeVsStreamParity is property 6: encrypting the same document
// through the Tree Processor and the Stream Processor must decrypt
// back to identical JSON values, even though the two processors never
// produce byte-identical output.
func TestTreeVsStreamParity(t *testing.T) {
	provider := newTestProvider(t)
	input := []byte(`{"id":"1","pk":"a","s":"hello","n":42,"a":[1,2,3],"o":{"k":"v"}}`)
	opts := doccrypt.EncryptionOptions{
		DataEncryptionKeyID: testKeyID,
		Algorithm:           keyprovider.AlgorithmRandomized,
		PathsToEncrypt:      []string{"/s", "/n", "/a", "/o"},
	}

	treeDoc := parseDoc(t, input)
	treeEncrypted, err := doccrypt.EncryptTree(context.Background(), treeDoc, opts, provider)
	require.NoError(t, err)
	treeDecrypted, _, err := doccrypt.DecryptTree(context.Background(), treeEncrypted, provider)
	require.NoError(t, err)

	streamEncrypted, err := doccrypt.Encrypt(context.Background(), input, opts, provider)
	require.NoError(t, err)
	streamDecrypted, _, err := doccrypt.Decrypt(context.Background(), streamEncrypted, provider)
	require.NoError(t, err)

	require.Empty(t, deep.Equal(normalizeNumbers(treeDecrypted), normalizeNumbers(parseDoc(t, streamDecrypted))))
}

// TestVersionUpgradeRule is property 5: the sidecar's format version
// is 4 iff at least one requested property was actually compressed
// under the request's minimum-size threshold, and 3 otherwise.
func TestVersionUpgradeRule(t *testing.T) {
	provider := newTestProvider(t)

	t.Run("nothing compressed stays version 3", func(t *testing.T) {
		input := []byte(`{"id":"1","s":"short"}`)
		opts := doccrypt.EncryptionOptions{
			DataEncryptionKeyID: testKeyID,
			Algorithm:           keyprovider.AlgorithmRandomized,
			PathsToEncrypt:      []string{"/s"},
			Compression: compressadapter.Options{
				Algorithm:   compressadapter.Deflate,
				MinimumSize: 1 << 20,
			},
		}
		out, err := doccrypt.Encrypt(context.Background(), input, opts, provider)
		require.NoError(t, err)
		doc := decodeGeneric(t, out)
		sidecar := doc[doccrypt.SidecarKey].(map[string]interface{})
		require.Equal(t, float64(doccrypt.FormatVersionNoCompression), sidecar["EncryptionFormatVersion"])
	})

	t.Run("one compressed property bumps to version 4", func(t *testing.T) {
		long := ""
		for i := 0; i < 200; i++ {
			long += "abcdefgh"
		}
		input, err := json.Marshal(map[string]interface{}{"id": "1", "s": long})
		require.NoError(t, err)
		opts := doccrypt.EncryptionOptions{
			DataEncryptionKeyID: testKeyID,
			Algorithm:           keyprovider.AlgorithmRandomized,
			PathsToEncrypt:      []string{"/s"},
			Compression: compressadapter.Options{
				Algorithm:   compressadapter.Deflate,
				MinimumSize: 32,
			},
		}
		out, err := doccrypt.Encrypt(context.Background(), input, opts, provider)
		require.NoError(t, err)
		doc := decodeGeneric(t, out)
		sidecar := doc[doccrypt.SidecarKey].(map[string]interface{})
		require.Equal(t, float64(doccrypt.FormatVersionCompressed), sidecar["EncryptionFormatVersion"])
	})
}

// normalizeNumbers converts json.Number leaves back to float64 so
// deep.Equal compares values the same way regardless of which decoder
// path produced them.
func normalizeNumbers(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, e := range val {
			if k == doccrypt.SidecarKey {
				continue
			}
			out[k] = normalizeNumbers(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = normalizeNumbers(e)
		}
		return out
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		return f
	case int64:
		return float64(val)
	case int:
		return float64(val)
	default:
		return val
	}
}
