// Package fields converts typed record fields to and from storage-safe
// ciphertext.
//
// Self-owned fields are encrypted one by one with the caller's auth cipher.
// Shared fields are encrypted together, as one JSON array, to the public key
// of a sharing envelope.
package fields

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sonr-io/keybridge/sharing"
)

// Field is one decrypted custom field.
type Field struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Label    string `json:"label"`
	Value    string `json:"value"`
	IsSecret bool   `json:"isSecret"`
}

// Envelope is a stored self-owned field. Value is the ciphertext of the
// field's short-key JSON form.
type Envelope struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type ownedField struct {
	Type     string `json:"t"`
	Label    string `json:"l"`
	Value    string `json:"v"`
	IsSecret bool   `json:"s"`
}

type sharedField struct {
	ID       string `json:"i"`
	Type     string `json:"t"`
	Label    string `json:"l"`
	Value    string `json:"v"`
	IsSecret bool   `json:"s"`
}

// Engine is the subset of engine operations shared fields need.
type Engine interface {
	GeneratePasswordSecretBoxKey(ctx context.Context, password, salt string) (string, error)
	DecryptPrivateKey(ctx context.Context, secretBoxKey, ciphertext string) (string, error)
	EncryptWithPublicKeyPair(ctx context.Context, plaintext, publicKey string) (string, error)
	DecryptWithPrivateKeyPair(ctx context.Context, ciphertext, publicKey, privateKey string) (string, error)
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger sets the codec logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Codec) { c.log = log }
}

// Codec encrypts and decrypts fields.
type Codec struct {
	auth   sharing.AuthCipher
	engine Engine
	log    zerolog.Logger
}

// New returns a codec. auth protects self-owned fields and e handles shared
// ones; either may be nil when that mode is unused.
func New(auth sharing.AuthCipher, e Engine, opts ...Option) *Codec {
	c := &Codec{auth: auth, engine: e, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EncryptField encrypts f with the auth cipher. A missing ID is assigned.
func (c *Codec) EncryptField(ctx context.Context, f Field) (Envelope, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	raw, err := json.Marshal(ownedField{Type: f.Type, Label: f.Label, Value: f.Value, IsSecret: f.IsSecret})
	if err != nil {
		return Envelope{}, fmt.Errorf("encode field %s: %w", f.ID, err)
	}
	ct, err := c.auth.Encrypt(ctx, string(raw))
	if err != nil {
		return Envelope{}, fmt.Errorf("encrypt field %s: %w", f.ID, err)
	}
	return Envelope{ID: f.ID, Value: ct}, nil
}

// EncryptFields encrypts every field, stopping at the first failure.
func (c *Codec) EncryptFields(ctx context.Context, fs []Field) ([]Envelope, error) {
	out := make([]Envelope, 0, len(fs))
	for _, f := range fs {
		env, err := c.EncryptField(ctx, f)
		if err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, nil
}

// DecryptField is the inverse of EncryptField. Decryption and parse failures
// are returned.
func (c *Codec) DecryptField(ctx context.Context, env Envelope) (Field, error) {
	plain, err := c.auth.Decrypt(ctx, env.Value)
	if err != nil {
		return Field{}, fmt.Errorf("decrypt field %s: %w", env.ID, err)
	}
	var w ownedField
	if err := json.Unmarshal([]byte(plain), &w); err != nil {
		return Field{}, fmt.Errorf("parse field %s: %w", env.ID, err)
	}
	return Field{ID: env.ID, Type: w.Type, Label: w.Label, Value: w.Value, IsSecret: w.IsSecret}, nil
}

// Result is the outcome of decoding one field.
type Result struct {
	ID    string
	Field Field
	Err   error
}

// DecryptFields decodes each envelope independently.
func (c *Codec) DecryptFields(ctx context.Context, envs []Envelope) []Result {
	out := make([]Result, len(envs))
	for i, env := range envs {
		f, err := c.DecryptField(ctx, env)
		out[i] = Result{ID: env.ID, Field: f, Err: err}
	}
	return out
}

// EncryptSharedFields encrypts fs as one unit to env.PublicKey. Missing IDs
// are assigned.
func (c *Codec) EncryptSharedFields(ctx context.Context, fs []Field, env sharing.Envelope) (string, error) {
	list := make([]sharedField, len(fs))
	for i, f := range fs {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		list[i] = sharedField{ID: f.ID, Type: f.Type, Label: f.Label, Value: f.Value, IsSecret: f.IsSecret}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encode shared fields: %w", err)
	}
	return c.engine.EncryptWithPublicKeyPair(ctx, string(raw), env.PublicKey)
}

// DecryptSharedFields unwraps the envelope private key with password and
// decrypts the shared field list.
func (c *Codec) DecryptSharedFields(ctx context.Context, ciphertext string, env sharing.Envelope, password string) ([]Field, error) {
	key, err := c.engine.GeneratePasswordSecretBoxKey(ctx, password, env.Salt)
	if err != nil {
		return nil, err
	}
	privateKey, err := c.engine.DecryptPrivateKey(ctx, key, env.PrivateKey)
	if err != nil {
		return nil, err
	}
	plain, err := c.engine.DecryptWithPrivateKeyPair(ctx, ciphertext, env.PublicKey, privateKey)
	if err != nil {
		return nil, err
	}

	var list []sharedField
	if err := json.Unmarshal([]byte(plain), &list); err != nil {
		return nil, fmt.Errorf("parse shared fields: %w", err)
	}
	out := make([]Field, len(list))
	for i, w := range list {
		out[i] = Field{ID: w.ID, Type: w.Type, Label: w.Label, Value: w.Value, IsSecret: w.IsSecret}
	}
	return out, nil
}
