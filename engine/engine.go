// Package engine defines the crypto engine contract shared by the facade,
// the in-process engine, the WASM host and the websocket bridge.
//
// Keys, salts and ciphertexts cross the contract as opaque strings; only
// the engine implementation knows their encoding.
package engine

import (
	"context"
	"errors"
)

// Wire names of the engine operations.
const (
	FnGenerateUsernameHash         = "generateUsernameHash"
	FnGenerateUserSalt             = "generateUserSalt"
	FnGeneratePasswordSecretBoxKey = "generatePasswordSecretBoxKey"
	FnGeneratePasswordAuthKey      = "generatePasswordAuthKey"
	FnGenerateRecoveryCode         = "generateRecoveryCode"
	FnGenerateAsymmetricKeys       = "generateAsymmetricKeys"
	FnEncryptPrivateKey            = "encryptPrivateKey"
	FnDecryptPrivateKey            = "decryptPrivateKey"
	FnDecryptPrivateKeyRecovery    = "decryptPrivateKeyRecovery"
	FnEncryptWithPublicKeyPair     = "encryptWithPublicKeyPair"
	FnDecryptWithPrivateKeyPair    = "decryptWithPrivateKeyPair"
	FnPasswordChange               = "passwordChange"
)

// Functions lists every wire name in a stable order.
var Functions = []string{
	FnGenerateUsernameHash,
	FnGenerateUserSalt,
	FnGeneratePasswordSecretBoxKey,
	FnGeneratePasswordAuthKey,
	FnGenerateRecoveryCode,
	FnGenerateAsymmetricKeys,
	FnEncryptPrivateKey,
	FnDecryptPrivateKey,
	FnDecryptPrivateKeyRecovery,
	FnEncryptWithPublicKeyPair,
	FnDecryptWithPrivateKeyPair,
	FnPasswordChange,
}

var (
	// ErrUnknownFunction is returned for a request naming no operation.
	ErrUnknownFunction = errors.New("unknown engine function")
	// ErrBadArguments is returned when a request's args do not match the
	// operation's parameter list.
	ErrBadArguments = errors.New("bad engine arguments")
)

// KeyPair is a freshly generated asymmetric key pair. PrivateKey is in
// cleartext form and must be wrapped before it is persisted.
type KeyPair struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// PasswordChangeResult is the private key re-wrapped under the new key.
type PasswordChangeResult struct {
	PrivateKey string `json:"privateKey"`
}

// Engine is implemented by every crypto engine.
type Engine interface {
	GenerateUsernameHash(ctx context.Context, username string) (string, error)
	GenerateUserSalt(ctx context.Context) (string, error)
	GeneratePasswordSecretBoxKey(ctx context.Context, password, salt string) (string, error)
	GeneratePasswordAuthKey(ctx context.Context, password, salt string) (string, error)
	GenerateRecoveryCode(ctx context.Context, password, salt string) (string, error)
	GenerateAsymmetricKeys(ctx context.Context) (KeyPair, error)
	EncryptPrivateKey(ctx context.Context, secretBoxKey, privateKey string) (string, error)
	DecryptPrivateKey(ctx context.Context, secretBoxKey, ciphertext string) (string, error)
	// DecryptPrivateKeyRecovery unwraps a private key wrapped under the
	// secret-box key derived from (recoveryCode, salt).
	DecryptPrivateKeyRecovery(ctx context.Context, recoveryCode, ciphertext, salt string) (string, error)
	EncryptWithPublicKeyPair(ctx context.Context, plaintext, publicKey string) (string, error)
	DecryptWithPrivateKeyPair(ctx context.Context, ciphertext, publicKey, privateKey string) (string, error)
	// PasswordChange unwraps privateKey with oldKey and re-wraps it with
	// newKey.
	PasswordChange(ctx context.Context, oldKey, newKey, privateKey string) (PasswordChangeResult, error)
}
