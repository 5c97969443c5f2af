// Package aead provides the AES-256-GCM authenticated encryption used to
// protect sharing passwords at rest.
package aead

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	mb "github.com/multiformats/go-multibase"
)

const (
	// NonceSize defines the standard 96-bit nonce size for optimal GCM performance
	NonceSize = 12
	// TagSize defines the 128-bit authentication tag size for GCM
	TagSize = 16
	// KeySize defines the AES-256 key size
	KeySize = 32
)

// AESGCMCipher wraps AES-GCM operations with secure defaults
type AESGCMCipher struct {
	gcm cipher.AEAD
	aad []byte
}

// NewAESGCM creates a new AES-GCM cipher with the provided 256-bit key.
// aad, when non-empty, is bound to every ciphertext.
func NewAESGCM(key []byte, aad ...byte) (*AESGCMCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size: expected %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM mode: %w", err)
	}

	return &AESGCMCipher{gcm: gcm, aad: aad}, nil
}

// Seal encrypts plaintext and returns nonce + ciphertext + tag
func (a *AESGCMCipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	result := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	copy(result, nonce)
	return a.gcm.Seal(result, nonce, plaintext, a.aad), nil
}

// Open authenticates and decrypts data produced by Seal
func (a *AESGCMCipher) Open(data []byte) ([]byte, error) {
	if len(data) < NonceSize+TagSize {
		return nil, fmt.Errorf("invalid ciphertext length: minimum %d bytes required", NonceSize+TagSize)
	}

	plaintext, err := a.gcm.Open(nil, data[:NonceSize], data[NonceSize:], a.aad)
	if err != nil {
		return nil, fmt.Errorf("decryption and authentication failed: %w", err)
	}
	return plaintext, nil
}

// Encrypt seals a string and returns it multibase (base64) encoded.
func (a *AESGCMCipher) Encrypt(_ context.Context, plaintext string) (string, error) {
	sealed, err := a.Seal([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return mb.Encode(mb.Base64, sealed)
}

// Decrypt reverses Encrypt.
func (a *AESGCMCipher) Decrypt(_ context.Context, ciphertext string) (string, error) {
	_, data, err := mb.Decode(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	plaintext, err := a.Open(data)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
