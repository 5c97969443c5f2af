package native

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	mb "github.com/multiformats/go-multibase"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/sonr-io/keybridge/crypto/secure"
)

const (
	secretBoxKeySize = 32
	authKeySize      = 32
	recoveryCodeSize = 20
	nonceSize        = 24
	recoveryGroup    = 4
)

// Keys are base58btc, everything else base64, both multibase prefixed.
func encodeKey(b []byte) (string, error) {
	return mb.Encode(mb.Base58BTC, b)
}

func encodeBinary(b []byte) (string, error) {
	return mb.Encode(mb.Base64, b)
}

func decodeKey(s string) ([]byte, error) {
	enc, b, err := mb.Decode(s)
	if err != nil {
		return nil, err
	}
	if enc != mb.Base58BTC {
		return nil, fmt.Errorf("unexpected key encoding %q", string(rune(enc)))
	}
	return b, nil
}

func decodeBinary(s string) ([]byte, error) {
	_, b, err := mb.Decode(s)
	return b, err
}

func decodeSecretBoxKey(s string) (*[32]byte, error) {
	raw, err := decodeKey(s)
	if err != nil {
		return nil, errors.Wrap(err, "decode secret box key")
	}
	defer secure.Zeroize(raw)
	key, err := secure.Array32(raw)
	if err != nil {
		return nil, errors.Wrap(err, "secret box key")
	}
	return key, nil
}

// sealSecretBox returns nonce || secretbox(plain).
func sealSecretBox(r io.Reader, key *[32]byte, plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(r, nonce[:]); err != nil {
		return nil, errors.Wrap(err, "generate nonce")
	}
	return secretbox.Seal(nonce[:], plain, &nonce, key), nil
}

func openSecretBox(key *[32]byte, sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, errors.New("wrapped private key is too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, key)
	if !ok {
		return nil, errors.New("private key decryption failed")
	}
	return plain, nil
}

// formatRecoveryCode renders raw as upper-case base32 in dash separated
// groups.
func formatRecoveryCode(raw []byte) (string, error) {
	enc, err := mb.Encode(mb.Base32, raw)
	if err != nil {
		return "", err
	}
	body := strings.ToUpper(enc[1:])

	var b strings.Builder
	for i := 0; i < len(body); i += recoveryGroup {
		if i > 0 {
			b.WriteByte('-')
		}
		end := min(i+recoveryGroup, len(body))
		b.WriteString(body[i:end])
	}
	return b.String(), nil
}
