// Package salt provides cryptographically secure salt generation for the
// password key hierarchy.
package salt

import (
	"crypto/rand"
	"fmt"
	"io"
)

const (
	// UserSaltSize is the size of a per-user salt (128 bits)
	UserSaltSize = 16
	// MinSaltSize defines the minimum acceptable salt size (128 bits)
	MinSaltSize = 16
	// MaxSaltSize defines the maximum salt size to prevent resource exhaustion
	MaxSaltSize = 1024
)

// Salt represents a cryptographically secure salt value
type Salt struct {
	value []byte
}

// GenerateFrom creates a new salt of the specified size read from r,
// falling back to crypto/rand when r is nil
func GenerateFrom(r io.Reader, size int) (*Salt, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}

	if r == nil {
		r = rand.Reader
	}
	saltBytes := make([]byte, size)
	if _, err := io.ReadFull(r, saltBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random salt: %w", err)
	}

	return &Salt{value: saltBytes}, nil
}

// FromBytes creates a Salt from existing bytes (validates size bounds)
func FromBytes(data []byte) (*Salt, error) {
	if err := checkSize(len(data)); err != nil {
		return nil, err
	}

	// Copy to prevent external modification
	saltBytes := make([]byte, len(data))
	copy(saltBytes, data)

	return &Salt{value: saltBytes}, nil
}

func checkSize(size int) error {
	if size < MinSaltSize {
		return fmt.Errorf("salt size too small: minimum %d bytes required, got %d", MinSaltSize, size)
	}
	if size > MaxSaltSize {
		return fmt.Errorf("salt size too large: maximum %d bytes allowed, got %d", MaxSaltSize, size)
	}
	return nil
}

// Bytes returns a copy of the salt bytes
func (s *Salt) Bytes() []byte {
	if s == nil || s.value == nil {
		return nil
	}
	result := make([]byte, len(s.value))
	copy(result, s.value)
	return result
}

// Clear zeros the salt value
func (s *Salt) Clear() {
	if s == nil {
		return
	}
	for i := range s.value {
		s.value[i] = 0
	}
	s.value = nil
}
