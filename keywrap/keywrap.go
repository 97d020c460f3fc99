// Package keywrap implements the client side of the sealdrop sharing
// protocol: per-file payload encryption and per-recipient wrapping of the
// file key under a key derived from a short one-time code.
//
// The server only ever sees the outputs of this package (ciphertext
// envelopes, wrapped keys, salts and code digests); it never holds a
// usable plaintext file key.
package keywrap

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the length of a file key in bytes (AES-256).
	KeySize = 32
	// NonceSize is the length of a GCM nonce in bytes.
	NonceSize = 12
	// SaltSize is the length of a wrap-key derivation salt in bytes.
	SaltSize = 16
	// DefaultCodeLength is the number of digits in a one-time code.
	DefaultCodeLength = 6
	// DefaultIterations is the PBKDF2 iteration count used to stretch a
	// one-time code into a wrapping key.
	DefaultIterations = 250000
)

// ErrCryptoFailure is returned for any authenticated-decryption failure.
// A wrong code and a corrupted envelope are deliberately indistinguishable.
var ErrCryptoFailure = errors.New("incorrect code or corrupted data")

// ErrMalformedCode is returned when a one-time code is not exactly the
// expected number of ASCII digits.
var ErrMalformedCode = errors.New("code must consist of digits of the expected length")

// ValidateCode checks that code is exactly length ASCII digits.
func ValidateCode(code string, length int) error {
	if len(code) != length {
		return ErrMalformedCode
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return ErrMalformedCode
		}
	}
	return nil
}

// GenerateCode returns a uniformly random numeric code of the given length.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid code length: %d", length)
	}
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to read random digit: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

// HashCode returns the SHA-256 digest of a one-time code. The digest is
// deterministic so the server can compare a submitted code against the
// stored value without ever seeing the code at issuance time.
func HashCode(code string) []byte {
	sum := sha256.Sum256([]byte(code))
	return sum[:]
}

// EncryptPayload encrypts plaintext under a fresh random 256-bit file key
// using AES-GCM with a fresh nonce. It returns the file key and the
// envelope laid out as nonce || ciphertext (GCM tag embedded).
func EncryptPayload(plaintext []byte) (fileKey, envelope []byte, err error) {
	fileKey = make([]byte, KeySize)
	if _, err := rand.Read(fileKey); err != nil {
		return nil, nil, fmt.Errorf("failed to generate file key: %w", err)
	}

	envelope, err = seal(fileKey, plaintext)
	if err != nil {
		return nil, nil, err
	}

	return fileKey, envelope, nil
}

// DecryptPayload is the inverse of EncryptPayload. Any failure to
// authenticate surfaces as ErrCryptoFailure.
func DecryptPayload(envelope, fileKey []byte) ([]byte, error) {
	return open(fileKey, envelope)
}

// WrapKey encrypts fileKey under a key derived from the one-time code and
// a fresh random salt. The wrapped key is laid out as nonce || ciphertext.
// The code must be exactly DefaultCodeLength ASCII digits.
func WrapKey(fileKey []byte, code string) (wrapped, salt []byte, err error) {
	if err := ValidateCode(code, DefaultCodeLength); err != nil {
		return nil, nil, err
	}
	if len(fileKey) != KeySize {
		return nil, nil, fmt.Errorf("file key must be %d bytes, got %d", KeySize, len(fileKey))
	}

	salt = make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	wrapped, err = wrapWithSalt(fileKey, code, salt)
	if err != nil {
		return nil, nil, err
	}

	return wrapped, salt, nil
}

// UnwrapKey re-derives the wrapping key from code and salt and decrypts
// the wrapped file key. A wrong code and a corrupted envelope both
// surface as ErrCryptoFailure.
func UnwrapKey(wrapped, salt []byte, code string) ([]byte, error) {
	if err := ValidateCode(code, DefaultCodeLength); err != nil {
		return nil, err
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt))
	}

	wrapKey := deriveWrapKey(code, salt)
	return open(wrapKey, wrapped)
}

// deriveWrapKey stretches a one-time code into a 256-bit wrapping key.
func deriveWrapKey(code string, salt []byte) []byte {
	return pbkdf2.Key([]byte(code), salt, DefaultIterations, KeySize, sha256.New)
}

// wrapWithSalt wraps fileKey under the key derived from code and salt.
func wrapWithSalt(fileKey []byte, code string, salt []byte) ([]byte, error) {
	wrapKey := deriveWrapKey(code, salt)
	return seal(wrapKey, fileKey)
}

func seal(key, plaintext []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

func open(key, envelope []byte) ([]byte, error) {
	if len(envelope) < NonceSize {
		return nil, ErrCryptoFailure
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesgcm.Open(nil, envelope[:NonceSize], envelope[NonceSize:], nil)
	if err != nil {
		return nil, ErrCryptoFailure
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
