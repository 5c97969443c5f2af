package native

import (
	"context"

	ecies "github.com/ecies/go/v2"
	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/box"

	"github.com/sonr-io/keybridge/crypto/secure"
	"github.com/sonr-io/keybridge/engine"
)

const (
	x25519PublicKeySize    = 32
	secp256k1CompressedKey = 33
	secp256k1FullKey       = 65
)

func (e *Engine) GenerateAsymmetricKeys(ctx context.Context) (engine.KeyPair, error) {
	if err := ctx.Err(); err != nil {
		return engine.KeyPair{}, err
	}

	var pub, priv []byte
	switch e.scheme {
	case SchemeSecp256k1:
		sk, err := ecies.GenerateKey()
		if err != nil {
			return engine.KeyPair{}, errors.Wrap(err, "generate secp256k1 key")
		}
		pub, priv = sk.PublicKey.Bytes(true), sk.Bytes()
	default:
		pk, sk, err := box.GenerateKey(e.rand)
		if err != nil {
			return engine.KeyPair{}, errors.Wrap(err, "generate x25519 key")
		}
		pub, priv = pk[:], sk[:]
	}
	defer secure.Zeroize(priv)

	pubStr, err := encodeKey(pub)
	if err != nil {
		return engine.KeyPair{}, err
	}
	privStr, err := encodeKey(priv)
	if err != nil {
		return engine.KeyPair{}, err
	}
	return engine.KeyPair{PublicKey: pubStr, PrivateKey: privStr}, nil
}

// EncryptWithPublicKeyPair seals plaintext to publicKey. The scheme follows
// from the key length, so envelopes made by either scheme interoperate.
func (e *Engine) EncryptWithPublicKeyPair(ctx context.Context, plaintext, publicKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	pub, err := decodeKey(publicKey)
	if err != nil {
		return "", errors.Wrap(err, "decode public key")
	}

	var sealed []byte
	switch len(pub) {
	case x25519PublicKeySize:
		pk, _ := secure.Array32(pub)
		sealed, err = box.SealAnonymous(nil, []byte(plaintext), pk, e.rand)
	case secp256k1CompressedKey, secp256k1FullKey:
		var pk *ecies.PublicKey
		if pk, err = ecies.NewPublicKeyFromBytes(pub); err == nil {
			sealed, err = ecies.Encrypt(pk, []byte(plaintext))
		}
	default:
		return "", errors.Errorf("unsupported public key length %d", len(pub))
	}
	if err != nil {
		return "", errors.Wrap(err, "seal to public key")
	}
	return encodeBinary(sealed)
}

func (e *Engine) DecryptWithPrivateKeyPair(ctx context.Context, ciphertext, publicKey, privateKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	pub, err := decodeKey(publicKey)
	if err != nil {
		return "", errors.Wrap(err, "decode public key")
	}
	priv, err := decodeKey(privateKey)
	if err != nil {
		return "", errors.Wrap(err, "decode private key")
	}
	defer secure.Zeroize(priv)
	sealed, err := decodeBinary(ciphertext)
	if err != nil {
		return "", errors.Wrap(err, "decode ciphertext")
	}

	switch len(pub) {
	case x25519PublicKeySize:
		pk, _ := secure.Array32(pub)
		sk, err := secure.Array32(priv)
		if err != nil {
			return "", errors.Wrap(err, "x25519 private key")
		}
		defer secure.Zeroize(sk[:])
		plain, ok := box.OpenAnonymous(nil, sealed, pk, sk)
		if !ok {
			return "", errors.New("envelope decryption failed")
		}
		return string(plain), nil
	case secp256k1CompressedKey, secp256k1FullKey:
		plain, err := ecies.Decrypt(ecies.NewPrivateKeyFromBytes(priv), sealed)
		if err != nil {
			return "", errors.Wrap(err, "envelope decryption failed")
		}
		return string(plain), nil
	default:
		return "", errors.Errorf("unsupported public key length %d", len(pub))
	}
}
