package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sonr-io/keybridge/rpc"
)

// Invoker runs one request and returns its raw JSON result.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (json.RawMessage, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, req Request) (json.RawMessage, error)

func (f InvokerFunc) Invoke(ctx context.Context, req Request) (json.RawMessage, error) {
	return f(ctx, req)
}

// Client is an Engine that hands every operation to an Invoker.
type Client struct {
	inv Invoker
}

var _ Engine = (*Client)(nil)

// NewClient wraps inv.
func NewClient(inv Invoker) *Client {
	return &Client{inv: inv}
}

// NewRemote returns a Client whose operations run on the far side of ch.
func NewRemote(ch *rpc.Channel) *Client {
	return NewClient(InvokerFunc(func(ctx context.Context, req Request) (json.RawMessage, error) {
		return ch.Call(ctx, NewPayload(req))
	}))
}

// Do sends req through c and decodes the result into T.
func Do[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var out T
	raw, err := c.inv.Invoke(ctx, req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%s: decode result: %w", req.Fn(), err)
	}
	return out, nil
}

func (c *Client) GenerateUsernameHash(ctx context.Context, username string) (string, error) {
	return Do[string](ctx, c, GenerateUsernameHashRequest{Username: username})
}

func (c *Client) GenerateUserSalt(ctx context.Context) (string, error) {
	return Do[string](ctx, c, GenerateUserSaltRequest{})
}

func (c *Client) GeneratePasswordSecretBoxKey(ctx context.Context, password, salt string) (string, error) {
	return Do[string](ctx, c, GeneratePasswordSecretBoxKeyRequest{Password: password, Salt: salt})
}

func (c *Client) GeneratePasswordAuthKey(ctx context.Context, password, salt string) (string, error) {
	return Do[string](ctx, c, GeneratePasswordAuthKeyRequest{Password: password, Salt: salt})
}

func (c *Client) GenerateRecoveryCode(ctx context.Context, password, salt string) (string, error) {
	return Do[string](ctx, c, GenerateRecoveryCodeRequest{Password: password, Salt: salt})
}

func (c *Client) GenerateAsymmetricKeys(ctx context.Context) (KeyPair, error) {
	return Do[KeyPair](ctx, c, GenerateAsymmetricKeysRequest{})
}

func (c *Client) EncryptPrivateKey(ctx context.Context, secretBoxKey, privateKey string) (string, error) {
	return Do[string](ctx, c, EncryptPrivateKeyRequest{SecretBoxKey: secretBoxKey, PrivateKey: privateKey})
}

func (c *Client) DecryptPrivateKey(ctx context.Context, secretBoxKey, ciphertext string) (string, error) {
	return Do[string](ctx, c, DecryptPrivateKeyRequest{SecretBoxKey: secretBoxKey, Ciphertext: ciphertext})
}

func (c *Client) DecryptPrivateKeyRecovery(ctx context.Context, recoveryCode, ciphertext, salt string) (string, error) {
	return Do[string](ctx, c, DecryptPrivateKeyRecoveryRequest{
		RecoveryCode: recoveryCode,
		Ciphertext:   ciphertext,
		Salt:         salt,
	})
}

func (c *Client) EncryptWithPublicKeyPair(ctx context.Context, plaintext, publicKey string) (string, error) {
	return Do[string](ctx, c, EncryptWithPublicKeyPairRequest{Plaintext: plaintext, PublicKey: publicKey})
}

func (c *Client) DecryptWithPrivateKeyPair(ctx context.Context, ciphertext, publicKey, privateKey string) (string, error) {
	return Do[string](ctx, c, DecryptWithPrivateKeyPairRequest{
		Ciphertext: ciphertext,
		PublicKey:  publicKey,
		PrivateKey: privateKey,
	})
}

func (c *Client) PasswordChange(ctx context.Context, oldKey, newKey, privateKey string) (PasswordChangeResult, error) {
	return Do[PasswordChangeResult](ctx, c, PasswordChangeRequest{OldKey: oldKey, NewKey: newKey, PrivateKey: privateKey})
}
