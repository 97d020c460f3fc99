package atrest

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	nonceSize = 12
	tagSize   = 16

	// columnVersion marks a database-column value as an at-rest envelope.
	// Values without this leading byte are legacy plaintext and are
	// returned unchanged by OpenColumn.
	columnVersion = 0x01
)

// ErrMalformedEnvelope is returned for an envelope too short to contain a
// nonce and tag, or one that fails authentication.
var ErrMalformedEnvelope = errors.New("malformed at-rest envelope")

// Seal encrypts plaintext with AES-GCM under key and returns the blob
// envelope nonce || tag || ciphertext. A nil key is the disabled state
// and returns plaintext unchanged.
func Seal(key, plaintext []byte) ([]byte, error) {
	if key == nil {
		return plaintext, nil
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// gcm.Seal appends the tag after the ciphertext; the stored layout
	// keeps the tag in front of it.
	sealed := aesgcm.Seal(nil, nonce, plaintext, nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	envelope := make([]byte, 0, nonceSize+tagSize+len(ct))
	envelope = append(envelope, nonce...)
	envelope = append(envelope, tag...)
	envelope = append(envelope, ct...)
	return envelope, nil
}

// Open decrypts a blob envelope produced by Seal. A nil key returns the
// envelope unchanged.
func Open(key, envelope []byte) ([]byte, error) {
	if key == nil {
		return envelope, nil
	}

	if len(envelope) < nonceSize+tagSize {
		return nil, ErrMalformedEnvelope
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := envelope[:nonceSize]
	tag := envelope[nonceSize : nonceSize+tagSize]
	ct := envelope[nonceSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := aesgcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrMalformedEnvelope
	}
	return plaintext, nil
}

// SealColumn encrypts a database-column value, prefixing the envelope
// with a version byte so legacy plaintext rows remain distinguishable.
// A nil key returns the value unchanged.
func SealColumn(key, value []byte) ([]byte, error) {
	if key == nil {
		return value, nil
	}

	envelope, err := Seal(key, value)
	if err != nil {
		return nil, err
	}
	return append([]byte{columnVersion}, envelope...), nil
}

// OpenColumn decrypts a database-column value. A value without the
// version-byte prefix predates column encryption and is returned
// unchanged; this is the migration contract for legacy rows. A nil key
// returns the value unchanged.
func OpenColumn(key, value []byte) ([]byte, error) {
	if key == nil {
		return value, nil
	}

	if len(value) == 0 || value[0] != columnVersion {
		return value, nil
	}
	return Open(key, value[1:])
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
