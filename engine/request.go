package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sonr-io/keybridge/rpc"
)

// Request is one engine operation with its arguments. The set of
// implementations is closed; Decode maps every wire name to exactly one.
type Request interface {
	Fn() string
	Args() []any
	apply(ctx context.Context, e Engine) (any, error)
}

// Payload is the {fn, args} half of a request frame.
type Payload struct {
	Fn   string `json:"fn"`
	Args []any  `json:"args"`
}

// NewPayload returns the wire payload for req.
func NewPayload(req Request) Payload {
	args := req.Args()
	if args == nil {
		args = []any{}
	}
	return Payload{Fn: req.Fn(), Args: args}
}

// Apply runs req against e.
func Apply(ctx context.Context, e Engine, req Request) (any, error) {
	return req.apply(ctx, e)
}

type GenerateUsernameHashRequest struct{ Username string }

type GenerateUserSaltRequest struct{}

type GeneratePasswordSecretBoxKeyRequest struct{ Password, Salt string }

type GeneratePasswordAuthKeyRequest struct{ Password, Salt string }

type GenerateRecoveryCodeRequest struct{ Password, Salt string }

type GenerateAsymmetricKeysRequest struct{}

type EncryptPrivateKeyRequest struct{ SecretBoxKey, PrivateKey string }

type DecryptPrivateKeyRequest struct{ SecretBoxKey, Ciphertext string }

type DecryptPrivateKeyRecoveryRequest struct{ RecoveryCode, Ciphertext, Salt string }

type EncryptWithPublicKeyPairRequest struct{ Plaintext, PublicKey string }

type DecryptWithPrivateKeyPairRequest struct{ Ciphertext, PublicKey, PrivateKey string }

type PasswordChangeRequest struct{ OldKey, NewKey, PrivateKey string }

func (GenerateUsernameHashRequest) Fn() string         { return FnGenerateUsernameHash }
func (GenerateUserSaltRequest) Fn() string             { return FnGenerateUserSalt }
func (GeneratePasswordSecretBoxKeyRequest) Fn() string { return FnGeneratePasswordSecretBoxKey }
func (GeneratePasswordAuthKeyRequest) Fn() string      { return FnGeneratePasswordAuthKey }
func (GenerateRecoveryCodeRequest) Fn() string         { return FnGenerateRecoveryCode }
func (GenerateAsymmetricKeysRequest) Fn() string       { return FnGenerateAsymmetricKeys }
func (EncryptPrivateKeyRequest) Fn() string            { return FnEncryptPrivateKey }
func (DecryptPrivateKeyRequest) Fn() string            { return FnDecryptPrivateKey }
func (DecryptPrivateKeyRecoveryRequest) Fn() string    { return FnDecryptPrivateKeyRecovery }
func (EncryptWithPublicKeyPairRequest) Fn() string     { return FnEncryptWithPublicKeyPair }
func (DecryptWithPrivateKeyPairRequest) Fn() string    { return FnDecryptWithPrivateKeyPair }
func (PasswordChangeRequest) Fn() string               { return FnPasswordChange }

func (r GenerateUsernameHashRequest) Args() []any { return []any{r.Username} }
func (GenerateUserSaltRequest) Args() []any       { return nil }
func (r GeneratePasswordSecretBoxKeyRequest) Args() []any {
	return []any{r.Password, r.Salt}
}
func (r GeneratePasswordAuthKeyRequest) Args() []any { return []any{r.Password, r.Salt} }
func (r GenerateRecoveryCodeRequest) Args() []any    { return []any{r.Password, r.Salt} }
func (GenerateAsymmetricKeysRequest) Args() []any    { return nil }
func (r EncryptPrivateKeyRequest) Args() []any       { return []any{r.SecretBoxKey, r.PrivateKey} }
func (r DecryptPrivateKeyRequest) Args() []any       { return []any{r.SecretBoxKey, r.Ciphertext} }
func (r DecryptPrivateKeyRecoveryRequest) Args() []any {
	return []any{r.RecoveryCode, r.Ciphertext, r.Salt}
}
func (r EncryptWithPublicKeyPairRequest) Args() []any { return []any{r.Plaintext, r.PublicKey} }
func (r DecryptWithPrivateKeyPairRequest) Args() []any {
	return []any{r.Ciphertext, r.PublicKey, r.PrivateKey}
}
func (r PasswordChangeRequest) Args() []any { return []any{r.OldKey, r.NewKey, r.PrivateKey} }

func (r GenerateUsernameHashRequest) apply(ctx context.Context, e Engine) (any, error) {
	return e.GenerateUsernameHash(ctx, r.Username)
}

func (GenerateUserSaltRequest) apply(ctx context.Context, e Engine) (any, error) {
	return e.GenerateUserSalt(ctx)
}

func (r GeneratePasswordSecretBoxKeyRequest) apply(ctx context.Context, e Engine) (any, error) {
	return e.GeneratePasswordSecretBoxKey(ctx, r.Password, r.Salt)
}

func (r GeneratePasswordAuthKeyRequest) apply(ctx context.Context, e Engine) (any, error) {
	return e.GeneratePasswordAuthKey(ctx, r.Password, r.Salt)
}

func (r GenerateRecoveryCodeRequest) apply(ctx context.Context, e Engine) (any, error) {
	return e.GenerateRecoveryCode(ctx, r.Password, r.Salt)
}

func (GenerateAsymmetricKeysRequest) apply(ctx context.Context, e Engine) (any, error) {
	return e.GenerateAsymmetricKeys(ctx)
}

func (r EncryptPrivateKeyRequest) apply(ctx context.Context, e Engine) (any, error) {
	return e.EncryptPrivateKey(ctx, r.SecretBoxKey, r.PrivateKey)
}

func (r DecryptPrivateKeyRequest) apply(ctx context.Context, e Engine) (any, error) {
	return e.DecryptPrivateKey(ctx, r.SecretBoxKey, r.Ciphertext)
}

func (r DecryptPrivateKeyRecoveryRequest) apply(ctx context.Context, e Engine) (any, error) {
	return e.DecryptPrivateKeyRecovery(ctx, r.RecoveryCode, r.Ciphertext, r.Salt)
}

func (r EncryptWithPublicKeyPairRequest) apply(ctx context.Context, e Engine) (any, error) {
	return e.EncryptWithPublicKeyPair(ctx, r.Plaintext, r.PublicKey)
}

func (r DecryptWithPrivateKeyPairRequest) apply(ctx context.Context, e Engine) (any, error) {
	return e.DecryptWithPrivateKeyPair(ctx, r.Ciphertext, r.PublicKey, r.PrivateKey)
}

func (r PasswordChangeRequest) apply(ctx context.Context, e Engine) (any, error) {
	return e.PasswordChange(ctx, r.OldKey, r.NewKey, r.PrivateKey)
}

// Decode maps a wire request onto its variant.
func Decode(req rpc.Request) (Request, error) {
	arity := map[string]int{
		FnGenerateUsernameHash:         1,
		FnGenerateUserSalt:             0,
		FnGeneratePasswordSecretBoxKey: 2,
		FnGeneratePasswordAuthKey:      2,
		FnGenerateRecoveryCode:         2,
		FnGenerateAsymmetricKeys:       0,
		FnEncryptPrivateKey:            2,
		FnDecryptPrivateKey:            2,
		FnDecryptPrivateKeyRecovery:    3,
		FnEncryptWithPublicKeyPair:     2,
		FnDecryptWithPrivateKeyPair:    3,
		FnPasswordChange:               3,
	}
	n, ok := arity[req.Fn]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, req.Fn)
	}
	a, err := stringArgs(req.Args, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Fn, err)
	}

	switch req.Fn {
	case FnGenerateUsernameHash:
		return GenerateUsernameHashRequest{Username: a[0]}, nil
	case FnGenerateUserSalt:
		return GenerateUserSaltRequest{}, nil
	case FnGeneratePasswordSecretBoxKey:
		return GeneratePasswordSecretBoxKeyRequest{Password: a[0], Salt: a[1]}, nil
	case FnGeneratePasswordAuthKey:
		return GeneratePasswordAuthKeyRequest{Password: a[0], Salt: a[1]}, nil
	case FnGenerateRecoveryCode:
		return GenerateRecoveryCodeRequest{Password: a[0], Salt: a[1]}, nil
	case FnGenerateAsymmetricKeys:
		return GenerateAsymmetricKeysRequest{}, nil
	case FnEncryptPrivateKey:
		return EncryptPrivateKeyRequest{SecretBoxKey: a[0], PrivateKey: a[1]}, nil
	case FnDecryptPrivateKey:
		return DecryptPrivateKeyRequest{SecretBoxKey: a[0], Ciphertext: a[1]}, nil
	case FnDecryptPrivateKeyRecovery:
		return DecryptPrivateKeyRecoveryRequest{RecoveryCode: a[0], Ciphertext: a[1], Salt: a[2]}, nil
	case FnEncryptWithPublicKeyPair:
		return EncryptWithPublicKeyPairRequest{Plaintext: a[0], PublicKey: a[1]}, nil
	case FnDecryptWithPrivateKeyPair:
		return DecryptWithPrivateKeyPairRequest{Ciphertext: a[0], PublicKey: a[1], PrivateKey: a[2]}, nil
	default:
		return PasswordChangeRequest{OldKey: a[0], NewKey: a[1], PrivateKey: a[2]}, nil
	}
}

func stringArgs(raw []json.RawMessage, n int) ([]string, error) {
	if len(raw) != n {
		return nil, fmt.Errorf("%w: expected %d args, got %d", ErrBadArguments, n, len(raw))
	}
	out := make([]string, n)
	for i, r := range raw {
		if err := json.Unmarshal(r, &out[i]); err != nil {
			return nil, fmt.Errorf("%w: arg %d is not a string", ErrBadArguments, i)
		}
	}
	return out, nil
}
