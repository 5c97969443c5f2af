// Package wasm verifies engine bundles before they are instantiated.
package wasm

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

// DefaultMaxBundleSize bounds the bytes accepted for one bundle.
const DefaultMaxBundleSize = 16 * 1024 * 1024

// VerificationError represents a bundle verification failure
type VerificationError struct {
	Bundle       string
	ExpectedHash string
	ActualHash   string
	Reason       string
}

// Error implements the error interface
func (e *VerificationError) Error() string {
	return fmt.Sprintf(
		"bundle verification failed for %s: %s (expected: %s, actual: %s)",
		e.Bundle, e.Reason, e.ExpectedHash, e.ActualHash,
	)
}

// ComputeHash calculates the hex SHA-256 of bundle bytes
func ComputeHash(bundle []byte) string {
	sum := sha256.Sum256(bundle)
	return hex.EncodeToString(sum[:])
}

// BundleVerifier pins bundles by name (usually the versioned URL) to their
// SHA-256.
type BundleVerifier struct {
	mu      sync.RWMutex
	pinned  map[string]string
	maxSize int
}

// NewBundleVerifier creates a verifier accepting bundles up to maxSize
// bytes. A non-positive maxSize uses DefaultMaxBundleSize.
func NewBundleVerifier(maxSize int) *BundleVerifier {
	if maxSize <= 0 {
		maxSize = DefaultMaxBundleSize
	}
	return &BundleVerifier{pinned: make(map[string]string), maxSize: maxSize}
}

// Pin records the trusted hash for name.
func (v *BundleVerifier) Pin(name, hash string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pinned[name] = strings.ToLower(hash)
}

// Pinned reports the trusted hash for name.
func (v *BundleVerifier) Pinned(name string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	h, ok := v.pinned[name]
	return h, ok
}

// Verify checks size and pinned hash of a bundle. Bundles without a pin are
// rejected.
func (v *BundleVerifier) Verify(name string, bundle []byte) error {
	if len(bundle) == 0 {
		return &VerificationError{Bundle: name, Reason: "empty bundle"}
	}
	if len(bundle) > v.maxSize {
		return &VerificationError{
			Bundle: name,
			Reason: fmt.Sprintf("size %d exceeds maximum %d", len(bundle), v.maxSize),
		}
	}

	expected, ok := v.Pinned(name)
	if !ok {
		return &VerificationError{Bundle: name, Reason: "no pinned hash"}
	}

	actual := ComputeHash(bundle)
	if actual != expected {
		return &VerificationError{
			Bundle:       name,
			ExpectedHash: expected,
			ActualHash:   actual,
			Reason:       "hash mismatch",
		}
	}
	return nil
}
