package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// info binds derived keys to this envelope format
const info = "office-orders envelope v1"

var (
	// ErrEmptySecret is returned when no shared secret is configured
	ErrEmptySecret = errors.New("envelope secret is empty")

	// ErrCiphertextTooShort means the blob cannot hold a nonce
	ErrCiphertextTooShort = errors.New("ciphertext too short")
)

// Envelope seals request and response bodies with AES-256-GCM.
// Blobs are base64(nonce || ciphertext || tag).
type Envelope struct {
	aead cipher.AEAD
}

// NewEnvelope derives a 32 byte key from secret with HKDF-SHA256
func NewEnvelope(secret string) (*Envelope, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive envelope key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Envelope{aead: aead}, nil
}

// Encrypt seals plain with a fresh random nonce
func (e *Envelope) Encrypt(plain []byte) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := e.aead.Seal(nonce, nonce, plain, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt
func (e *Envelope) Decrypt(blob string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("invalid envelope encoding: %w", err)
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrCiphertextTooShort
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plain, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open envelope: %w", err)
	}
	return plain, nil
}
