// Package native is the in-process crypto engine. It backs the WASM guest,
// the websocket bridge and tests.
package native

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"lukechampine.com/blake3"

	"github.com/sonr-io/keybridge/crypto/argon2"
	"github.com/sonr-io/keybridge/crypto/salt"
	"github.com/sonr-io/keybridge/crypto/secure"
	"github.com/sonr-io/keybridge/engine"
)

const usernameDomain = "keybridge/username:"

// Scheme selects the asymmetric key type produced by GenerateAsymmetricKeys.
type Scheme string

const (
	SchemeX25519    Scheme = "x25519"
	SchemeSecp256k1 Scheme = "secp256k1"
)

// ParseScheme maps a config value to a Scheme. Empty selects x25519.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(s)) {
	case "", SchemeX25519:
		return SchemeX25519, nil
	case SchemeSecp256k1:
		return SchemeSecp256k1, nil
	default:
		return "", fmt.Errorf("unknown key scheme %q", s)
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithKDFConfig overrides the Argon2id parameters.
func WithKDFConfig(cfg *argon2.Config) Option {
	return func(e *Engine) { e.kdfConfig = cfg }
}

// WithScheme selects the asymmetric scheme.
func WithScheme(s Scheme) Option {
	return func(e *Engine) { e.scheme = s }
}

// WithRandom replaces crypto/rand as the source of salts, nonces and keys.
func WithRandom(r io.Reader) Option {
	return func(e *Engine) { e.rand = r }
}

// Engine implements engine.Engine in Go.
type Engine struct {
	kdfConfig *argon2.Config
	kdf       *argon2.KDF
	scheme    Scheme
	rand      io.Reader
}

var _ engine.Engine = (*Engine)(nil)

// New builds an engine with Argon2id defaults and x25519 keys.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		kdfConfig: argon2.DefaultConfig(),
		scheme:    SchemeX25519,
		rand:      rand.Reader,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := argon2.ValidateConfig(e.kdfConfig); err != nil {
		return nil, errors.Wrap(err, "native engine")
	}
	if _, err := ParseScheme(string(e.scheme)); err != nil {
		return nil, errors.Wrap(err, "native engine")
	}
	e.kdf = argon2.New(e.kdfConfig)
	return e, nil
}

// Scheme reports the configured asymmetric scheme.
func (e *Engine) Scheme() Scheme {
	return e.scheme
}

// KDFConfig reports the Argon2id parameters in use.
func (e *Engine) KDFConfig() argon2.Config {
	return e.kdf.Config()
}

func (e *Engine) GenerateUsernameHash(ctx context.Context, username string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	normalized := strings.ToLower(strings.TrimSpace(username))
	if normalized == "" {
		return "", errors.New("username is empty")
	}
	sum := blake3.Sum256([]byte(usernameDomain + normalized))
	return hex.EncodeToString(sum[:]), nil
}

func (e *Engine) GenerateUserSalt(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s, err := salt.GenerateFrom(e.rand, salt.UserSaltSize)
	if err != nil {
		return "", errors.Wrap(err, "generate user salt")
	}
	defer s.Clear()
	return encodeBinary(s.Bytes())
}

func (e *Engine) GeneratePasswordSecretBoxKey(ctx context.Context, password, salt string) (string, error) {
	key, err := e.subkey(ctx, password, salt, argon2.LabelSecretBox, secretBoxKeySize)
	if err != nil {
		return "", err
	}
	defer secure.Zeroize(key)
	return encodeKey(key)
}

func (e *Engine) GeneratePasswordAuthKey(ctx context.Context, password, salt string) (string, error) {
	key, err := e.subkey(ctx, password, salt, argon2.LabelAuth, authKeySize)
	if err != nil {
		return "", err
	}
	defer secure.Zeroize(key)
	return encodeKey(key)
}

func (e *Engine) GenerateRecoveryCode(ctx context.Context, password, salt string) (string, error) {
	raw, err := e.subkey(ctx, password, salt, argon2.LabelRecovery, recoveryCodeSize)
	if err != nil {
		return "", err
	}
	defer secure.Zeroize(raw)
	return formatRecoveryCode(raw)
}

func (e *Engine) EncryptPrivateKey(ctx context.Context, secretBoxKey, privateKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := decodeSecretBoxKey(secretBoxKey)
	if err != nil {
		return "", err
	}
	defer secure.Zeroize(key[:])

	sealed, err := sealSecretBox(e.rand, key, []byte(privateKey))
	if err != nil {
		return "", err
	}
	return encodeBinary(sealed)
}

func (e *Engine) DecryptPrivateKey(ctx context.Context, secretBoxKey, ciphertext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := decodeSecretBoxKey(secretBoxKey)
	if err != nil {
		return "", err
	}
	defer secure.Zeroize(key[:])

	sealed, err := decodeBinary(ciphertext)
	if err != nil {
		return "", errors.Wrap(err, "decode wrapped private key")
	}
	plain, err := openSecretBox(key, sealed)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (e *Engine) DecryptPrivateKeyRecovery(ctx context.Context, recoveryCode, ciphertext, salt string) (string, error) {
	key, err := e.GeneratePasswordSecretBoxKey(ctx, recoveryCode, salt)
	if err != nil {
		return "", errors.Wrap(err, "derive recovery key")
	}
	return e.DecryptPrivateKey(ctx, key, ciphertext)
}

func (e *Engine) PasswordChange(ctx context.Context, oldKey, newKey, privateKey string) (engine.PasswordChangeResult, error) {
	plain, err := e.DecryptPrivateKey(ctx, oldKey, privateKey)
	if err != nil {
		return engine.PasswordChangeResult{}, errors.Wrap(err, "unwrap with old key")
	}
	rewrapped, err := e.EncryptPrivateKey(ctx, newKey, plain)
	if err != nil {
		return engine.PasswordChangeResult{}, errors.Wrap(err, "wrap with new key")
	}
	return engine.PasswordChangeResult{PrivateKey: rewrapped}, nil
}

// subkey derives the Argon2id master key for (password, salt) and expands
// it under label.
func (e *Engine) subkey(ctx context.Context, password, saltStr, label string, size int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, errors.New("password is empty")
	}
	raw, err := decodeBinary(saltStr)
	if err != nil {
		return nil, errors.Wrap(err, "decode salt")
	}
	s, err := salt.FromBytes(raw)
	if err != nil {
		return nil, errors.Wrap(err, "user salt")
	}
	defer s.Clear()

	pw := []byte(password)
	master := e.kdf.DeriveKey(pw, s.Bytes())
	defer secure.ZeroizeMultiple(master, pw, raw)

	key, err := argon2.DeriveSubkey(master, label, size)
	if err != nil {
		return nil, err
	}
	return key, nil
}
