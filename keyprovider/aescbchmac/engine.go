// Package aescbchmac implements the AES-CBC+HMAC authenticated
// encryption primitive named by both algorithm enum values in the
// design (legacy_aead_cbc_hmac, randomized_aead_cbc_hmac). It
// satisfies keyprovider.KeyHandle.
//
// Layout, adapted from the teacher's crypto/encryption engine (IV +
// encrypted(HMAC(plaintext) + plaintext)) from its original CFB
// stream cipher to CBC block mode with PKCS#7 padding, since CBC
// requires block-aligned input:
//
//	IV(16) || CBC-Encrypt(PKCS7Pad(HMAC-SHA256(plaintext) || plaintext))
package aescbchmac

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/vaultdoc/fieldcrypt/errors"
)

const (
	// KeySize is the combined length of the AES-256 key and the
	// HMAC-SHA256 key a Handle is constructed from.
	KeySize     = aesKeySize + hmacKeySize
	aesKeySize  = 32
	hmacKeySize = 32
	hmacSize    = sha256.Size
	ivSize      = aes.BlockSize
)

// Handle is a keyprovider.KeyHandle backed by a single 64-byte key
// material: the first 32 bytes are the AES-256 key, the remaining 32
// are the HMAC-SHA256 key.
type Handle struct {
	aesKey  []byte
	hmacKey []byte
}

// New splits keyMaterial into its AES and HMAC halves and constructs
// a Handle. keyMaterial must be exactly KeySize bytes.
func New(keyMaterial []byte) (*Handle, error) {
	if len(keyMaterial) != KeySize {
		return nil, errors.E(errors.InvalidArgument, "key material must be 64 bytes for AES-CBC+HMAC")
	}
	h := &Handle{
		aesKey:  make([]byte, aesKeySize),
		hmacKey: make([]byte, hmacKeySize),
	}
	copy(h.aesKey, keyMaterial[:aesKeySize])
	copy(h.hmacKey, keyMaterial[aesKeySize:])
	return h, nil
}

// CiphertextLength implements keyprovider.KeyHandle.
func (h *Handle) CiphertextLength(plaintextLen int) int {
	return ivSize + pkcs7PaddedLen(hmacSize+plaintextLen)
}

// PlaintextLength implements keyprovider.KeyHandle. It returns an
// upper bound: the exact plaintext length is only known once PKCS#7
// padding is stripped during Decrypt.
func (h *Handle) PlaintextLength(ciphertextLen int) int {
	n := ciphertextLen - ivSize - hmacSize
	if n < 0 {
		return 0
	}
	return n
}

// Encrypt implements keyprovider.KeyHandle.
func (h *Handle) Encrypt(ctx context.Context, plaintext []byte, dst []byte, offset int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.E(errors.Cancelled, "encrypt", err)
	}
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return 0, errors.E(errors.Internal, "generating IV", err)
	}

	mac := hmac.New(sha256.New, h.hmacKey)
	mac.Write(plaintext)
	sum := mac.Sum(nil)

	combined := make([]byte, 0, len(sum)+len(plaintext))
	combined = append(combined, sum...)
	combined = append(combined, plaintext...)
	padded := pkcs7Pad(combined)

	block, err := aes.NewCipher(h.aesKey)
	if err != nil {
		return 0, errors.E(errors.Internal, "constructing AES cipher", err)
	}
	mode := cipher.NewCBCEncrypter(block, iv)
	ciphertext := make([]byte, len(padded))
	mode.CryptBlocks(ciphertext, padded)

	total := ivSize + len(ciphertext)
	if len(dst) < offset+total {
		return 0, errors.E(errors.Internal, "destination buffer too small for ciphertext")
	}
	n := copy(dst[offset:], iv)
	n += copy(dst[offset+n:], ciphertext)
	return n, nil
}

// Decrypt implements keyprovider.KeyHandle.
func (h *Handle) Decrypt(ctx context.Context, ciphertext []byte, dst []byte, offset int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.E(errors.Cancelled, "decrypt", err)
	}
	if len(ciphertext) < ivSize+aes.BlockSize {
		return 0, errors.E(errors.FormatViolation, "ciphertext shorter than IV plus one block")
	}
	iv := ciphertext[:ivSize]
	body := ciphertext[ivSize:]
	if len(body)%aes.BlockSize != 0 {
		return 0, errors.E(errors.FormatViolation, "ciphertext body is not block-aligned")
	}

	block, err := aes.NewCipher(h.aesKey)
	if err != nil {
		return 0, errors.E(errors.Internal, "constructing AES cipher", err)
	}
	mode := cipher.NewCBCDecrypter(block, iv)
	padded := make([]byte, len(body))
	mode.CryptBlocks(padded, body)

	combined, err := pkcs7Unpad(padded)
	if err != nil {
		return 0, errors.E(errors.AuthFailed, "removing padding", err)
	}
	if len(combined) < hmacSize {
		return 0, errors.E(errors.AuthFailed, "decrypted payload shorter than HMAC")
	}
	gotSum, plaintext := combined[:hmacSize], combined[hmacSize:]

	mac := hmac.New(sha256.New, h.hmacKey)
	mac.Write(plaintext)
	wantSum := mac.Sum(nil)
	if !hmac.Equal(gotSum, wantSum) {
		return 0, errors.E(errors.AuthFailed, "HMAC mismatch")
	}

	if len(dst) < offset+len(plaintext) {
		return 0, errors.E(errors.Internal, "destination buffer too small for plaintext")
	}
	n := copy(dst[offset:], plaintext)
	return n, nil
}

func pkcs7PaddedLen(n int) int {
	return ((n / aes.BlockSize) + 1) * aes.BlockSize
}

func pkcs7Pad(b []byte) []byte {
	padLen := aes.BlockSize - (len(b) % aes.BlockSize)
	if padLen == 0 {
		padLen = aes.BlockSize
	}
	padded := make([]byte, len(b)+padLen)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 || len(b)%aes.BlockSize != 0 {
		return nil, errors.New("padded buffer not block-aligned")
	}
	padLen := int(b[len(b)-1])
	if padLen == 0 || padLen > aes.BlockSize || padLen > len(b) {
		return nil, errors.New("invalid padding length")
	}
	for _, c := range b[len(b)-padLen:] {
		if int(c) != padLen {
			return nil, errors.New("invalid padding bytes")
		}
	}
	return b[:len(b)-padLen], nil
}
