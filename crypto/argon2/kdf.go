// Package argon2 provides the Argon2id master key derivation used by the
// password key hierarchy.
package argon2

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// Subkey labels split from one master key.
const (
	LabelSecretBox = "secretbox"
	LabelAuth      = "auth"
	LabelRecovery  = "recovery"
)

// Config defines Argon2id parameters
type Config struct {
	Time        uint32 // Number of iterations
	Memory      uint32 // Memory in KB
	Parallelism uint8  // Number of threads
	KeyLength   uint32 // Output key length in bytes
}

// DefaultConfig returns the parameters used for user passwords
func DefaultConfig() *Config {
	return &Config{
		Time:        3,
		Memory:      64 * 1024, // 64MB
		Parallelism: 4,
		KeyLength:   32,
	}
}

// LightConfig returns lighter parameters for tests and constrained hosts
func LightConfig() *Config {
	return &Config{
		Time:        1,
		Memory:      8 * 1024, // 8MB
		Parallelism: 1,
		KeyLength:   32,
	}
}

// ValidateConfig validates Argon2id parameters
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("argon2 config is required")
	}
	if config.Time < 1 {
		return fmt.Errorf("time must be at least 1")
	}
	if config.Memory < 8*1024 {
		return fmt.Errorf("memory must be at least 8MB")
	}
	if config.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1")
	}
	if config.KeyLength < 16 {
		return fmt.Errorf("key length must be at least 16 bytes")
	}
	return nil
}

// KDF implements Argon2id key derivation
type KDF struct {
	config *Config
}

// New creates a new Argon2id KDF with the given configuration
func New(config *Config) *KDF {
	if config == nil {
		config = DefaultConfig()
	}
	return &KDF{config: config}
}

// Config returns the parameters in use.
func (k *KDF) Config() Config {
	return *k.config
}

// DeriveKey derives the master key from password and salt
func (k *KDF) DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(
		password,
		salt,
		k.config.Time,
		k.config.Memory,
		k.config.Parallelism,
		k.config.KeyLength,
	)
}

// DeriveSubkey expands a master key into the subkey for label. Distinct
// labels yield independent keys.
func DeriveSubkey(master []byte, label string, size int) ([]byte, error) {
	if len(master) == 0 {
		return nil, errors.New("empty master key")
	}
	out := make([]byte, size)
	r := hkdf.New(sha256.New, master, nil, []byte("keybridge/"+label))
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, errors.Wrapf(err, "expand %s subkey", label)
	}
	return out, nil
}
