package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Field-level encryption for short PII columns (phone numbers, emergency
// contacts). Stored form is a single text value:
//
//	hex(nonce) ":" hex(tag) ":" hex(ciphertext)
//
// which fits an existing TEXT column without schema change.

const (
	keyLen   = 32 // AES-256
	nonceLen = 12
	tagLen   = 16
	encParts = 3
	encSep   = ":"
)

var (
	ErrInvalidKeyLength = errors.New("field cipher key must be 32 bytes")
	// ErrDecryptionFailed covers malformed encodings and tag mismatches.
	// Callers surface it generically and never expose cipher internals.
	ErrDecryptionFailed = errors.New("decryption failed")
)

type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher builds a cipher from a 32-byte key. A wrong-sized key is a
// configuration error and must abort startup.
func NewFieldCipher(key []byte) (*FieldCipher, error) {
	if len(key) != keyLen {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeyLength, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &FieldCipher{aead: aead}, nil
}

// Encrypt seals plain under a fresh random nonce. Empty input is returned
// unchanged: empty PII is not sensitive and must not round-trip through the
// cipher.
func (f *FieldCipher) Encrypt(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := f.aead.Seal(nil, nonce, []byte(plain), nil)
	ct, tag := sealed[:len(sealed)-tagLen], sealed[len(sealed)-tagLen:]
	return hex.EncodeToString(nonce) + encSep + hex.EncodeToString(tag) + encSep + hex.EncodeToString(ct), nil
}

// Decrypt opens an encoded value. A value with no separator at all is
// returned unchanged: rows written before field encryption was introduced are
// plain text and can never contain the three-part hex shape. Anything that
// does contain separators must parse and authenticate, otherwise
// ErrDecryptionFailed.
func (f *FieldCipher) Decrypt(enc string) (string, error) {
	if enc == "" || !strings.Contains(enc, encSep) {
		return enc, nil
	}
	parts := strings.Split(enc, encSep)
	if len(parts) != encParts {
		return "", ErrDecryptionFailed
	}
	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceLen {
		return "", ErrDecryptionFailed
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagLen {
		return "", ErrDecryptionFailed
	}
	ct, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrDecryptionFailed
	}
	plain, err := f.aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plain), nil
}
