// Package crypt seals blobs such as payment proofs with AES-256-GCM before
// they reach a storage disk. A sealed blob is nonce || ciphertext || tag.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/shashiranjanraj/panaya/config"
)

var (
	ErrDecrypt = errors.New("crypt: decryption failed")
	ErrNoKey   = errors.New("crypt: APP_KEY not configured")
)

// key derives the AES-256 key from APP_KEY, falling back to JWT_SECRET.
func key() ([]byte, error) {
	secret := config.Get("APP_KEY", config.JWTSecret())
	if secret == "" {
		return nil, ErrNoKey
	}
	h := sha256.Sum256([]byte(secret))
	return h[:], nil
}

func aead() (cipher.AEAD, error) {
	k, err := key()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("crypt: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypt: new GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts data. aad binds the blob to its owner (for proofs, the
// storage key) so it cannot be swapped with another row's object.
func Seal(data, aad []byte) ([]byte, error) {
	gcm, err := aead()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize(), gcm.NonceSize()+len(data)+gcm.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypt: nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, data, aad), nil
}

func Open(sealed, aad []byte) ([]byte, error) {
	gcm, err := aead()
	if err != nil {
		return nil, err
	}
	n := gcm.NonceSize()
	if len(sealed) < n+gcm.Overhead() {
		return nil, ErrDecrypt
	}
	plain, err := gcm.Open(nil, sealed[:n], sealed[n:], aad)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// EncryptString seals s and returns it base64url encoded, for values that
// live in a text column.
func EncryptString(s string) (string, error) {
	b, err := Seal([]byte(s), nil)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func DecryptString(encoded string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecrypt
	}
	b, err := Open(raw, nil)
	return string(b), err
}
