// Package sharing implements the password-protected key envelope used to
// hand an identity's data to a second party, and to revoke that access by
// rotating the password instead of re-encrypting the data.
package sharing

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/sonr-io/keybridge/crypto/password"
	"github.com/sonr-io/keybridge/engine"
)

// AuthCipher is the caller's own symmetric encryption, used to keep the
// plaintext password out of the envelope.
type AuthCipher interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

// Engine is the subset of engine operations the protocol needs.
type Engine interface {
	GenerateUserSalt(ctx context.Context) (string, error)
	GeneratePasswordSecretBoxKey(ctx context.Context, password, salt string) (string, error)
	GenerateAsymmetricKeys(ctx context.Context) (engine.KeyPair, error)
	EncryptPrivateKey(ctx context.Context, secretBoxKey, privateKey string) (string, error)
	DecryptPrivateKey(ctx context.Context, secretBoxKey, ciphertext string) (string, error)
}

// Envelope is the portable sharing bundle. Only Salt and PublicKey are
// cleartext.
type Envelope struct {
	Password   string `json:"password"`
	PrivateKey string `json:"private_key"`
	Salt       string `json:"salt"`
	PublicKey  string `json:"public_key"`
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithPasswordOptions replaces the default password shape.
func WithPasswordOptions(opts password.Options) Option {
	return func(p *Protocol) { p.passwordOpts = opts }
}

// WithRandom sets the randomness source of generated passwords.
func WithRandom(r io.Reader) Option {
	return func(p *Protocol) { p.passwords = password.NewGenerator(r) }
}

// WithLogger sets the protocol logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Protocol) { p.log = log }
}

// Protocol runs envelope creation and rotation against an engine.
type Protocol struct {
	engine       Engine
	auth         AuthCipher
	passwords    *password.Generator
	passwordOpts password.Options
	log          zerolog.Logger
}

// New returns a protocol over e that protects passwords with auth.
func New(e Engine, auth AuthCipher, opts ...Option) *Protocol {
	p := &Protocol{
		engine:       e,
		auth:         auth,
		passwords:    password.NewGenerator(nil),
		passwordOpts: password.DefaultOptions(),
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GenerateSharingPassword returns a fresh random envelope password.
func (p *Protocol) GenerateSharingPassword() (string, error) {
	return p.passwords.Generate(p.passwordOpts)
}

// GenerateSharingEncryption creates a new envelope around a fresh key pair.
func (p *Protocol) GenerateSharingEncryption(ctx context.Context) (Envelope, error) {
	pw, err := p.GenerateSharingPassword()
	if err != nil {
		return Envelope{}, err
	}
	keys, err := p.engine.GenerateAsymmetricKeys(ctx)
	if err != nil {
		return Envelope{}, err
	}
	salt, err := p.engine.GenerateUserSalt(ctx)
	if err != nil {
		return Envelope{}, err
	}
	wrapped, err := p.wrap(ctx, pw, salt, keys.PrivateKey)
	if err != nil {
		return Envelope{}, err
	}
	sealedPassword, err := p.auth.Encrypt(ctx, pw)
	if err != nil {
		return Envelope{}, fmt.Errorf("protect sharing password: %w", err)
	}

	p.log.Debug().Str("public_key", keys.PublicKey).Msg("sharing envelope created")
	return Envelope{
		Password:   sealedPassword,
		PrivateKey: wrapped,
		Salt:       salt,
		PublicKey:  keys.PublicKey,
	}, nil
}

// GenerateNewPassword re-wraps the envelope's private key under a new
// password. Salt and PublicKey are carried over unchanged.
func (p *Protocol) GenerateNewPassword(ctx context.Context, env Envelope, decryptedPassword string) (Envelope, error) {
	privateKey, err := p.UnwrapPrivateKey(ctx, env, decryptedPassword)
	if err != nil {
		return Envelope{}, err
	}
	pw, err := p.GenerateSharingPassword()
	if err != nil {
		return Envelope{}, err
	}
	wrapped, err := p.wrap(ctx, pw, env.Salt, privateKey)
	if err != nil {
		return Envelope{}, err
	}
	sealedPassword, err := p.auth.Encrypt(ctx, pw)
	if err != nil {
		return Envelope{}, fmt.Errorf("protect sharing password: %w", err)
	}

	p.log.Debug().Str("public_key", env.PublicKey).Msg("sharing password rotated")
	return Envelope{
		Password:   sealedPassword,
		PrivateKey: wrapped,
		Salt:       env.Salt,
		PublicKey:  env.PublicKey,
	}, nil
}

// UnwrapPrivateKey recovers the envelope's private key with its plaintext
// password. The result is not checked against PublicKey.
func (p *Protocol) UnwrapPrivateKey(ctx context.Context, env Envelope, password string) (string, error) {
	key, err := p.engine.GeneratePasswordSecretBoxKey(ctx, password, env.Salt)
	if err != nil {
		return "", err
	}
	return p.engine.DecryptPrivateKey(ctx, key, env.PrivateKey)
}

// RevealPassword decrypts the envelope password with the auth cipher.
func (p *Protocol) RevealPassword(ctx context.Context, env Envelope) (string, error) {
	return p.auth.Decrypt(ctx, env.Password)
}

func (p *Protocol) wrap(ctx context.Context, pw, salt, privateKey string) (string, error) {
	key, err := p.engine.GeneratePasswordSecretBoxKey(ctx, pw, salt)
	if err != nil {
		return "", err
	}
	return p.engine.EncryptPrivateKey(ctx, key, privateKey)
}
