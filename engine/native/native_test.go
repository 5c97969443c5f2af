package native

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonr-io/keybridge/crypto/argon2"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(append([]Option{WithKDFConfig(argon2.LightConfig())}, opts...)...)
	require.NoError(t, err)
	return e
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New(WithKDFConfig(&argon2.Config{}))
	assert.Error(t, err)

	_, err = New(WithScheme("rsa"))
	assert.Error(t, err)
}

func TestGenerateUsernameHash(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	a, err := e.GenerateUsernameHash(ctx, "Alice@Example.com")
	require.NoError(t, err)
	b, err := e.GenerateUsernameHash(ctx, "  alice@example.com ")
	require.NoError(t, err)
	c, err := e.GenerateUsernameHash(ctx, "bob@example.com")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)

	_, err = e.GenerateUsernameHash(ctx, "   ")
	assert.Error(t, err)
}

func TestPasswordDerivations(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	s, err := e.GenerateUserSalt(ctx)
	require.NoError(t, err)
	other, err := e.GenerateUserSalt(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, s, other)

	box1, err := e.GeneratePasswordSecretBoxKey(ctx, "correct horse", s)
	require.NoError(t, err)
	box2, err := e.GeneratePasswordSecretBoxKey(ctx, "correct horse", s)
	require.NoError(t, err)
	auth, err := e.GeneratePasswordAuthKey(ctx, "correct horse", s)
	require.NoError(t, err)
	boxOtherSalt, err := e.GeneratePasswordSecretBoxKey(ctx, "correct horse", other)
	require.NoError(t, err)

	assert.Equal(t, box1, box2)
	assert.NotEqual(t, box1, auth)
	assert.NotEqual(t, box1, boxOtherSalt)

	code1, err := e.GenerateRecoveryCode(ctx, "correct horse", s)
	require.NoError(t, err)
	code2, err := e.GenerateRecoveryCode(ctx, "correct horse", s)
	require.NoError(t, err)
	assert.Equal(t, code1, code2, "recovery code must be regenerable")
	assert.Regexp(t, regexp.MustCompile(`^[A-Z2-7]{4}(-[A-Z2-7]{4})+$`), code1)

	_, err = e.GeneratePasswordSecretBoxKey(ctx, "", s)
	assert.Error(t, err)
}

func TestPrivateKeyWrapRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	s, err := e.GenerateUserSalt(ctx)
	require.NoError(t, err)
	key, err := e.GeneratePasswordSecretBoxKey(ctx, "pw", s)
	require.NoError(t, err)
	wrongKey, err := e.GeneratePasswordSecretBoxKey(ctx, "not pw", s)
	require.NoError(t, err)
	kp, err := e.GenerateAsymmetricKeys(ctx)
	require.NoError(t, err)

	ct, err := e.EncryptPrivateKey(ctx, key, kp.PrivateKey)
	require.NoError(t, err)
	assert.NotContains(t, ct, kp.PrivateKey)

	pt, err := e.DecryptPrivateKey(ctx, key, ct)
	require.NoError(t, err)
	assert.Equal(t, kp.PrivateKey, pt)

	_, err = e.DecryptPrivateKey(ctx, wrongKey, ct)
	assert.Error(t, err)
	_, err = e.DecryptPrivateKey(ctx, key, "mAAAA")
	assert.Error(t, err)
}

func TestDecryptPrivateKeyRecovery(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	s, err := e.GenerateUserSalt(ctx)
	require.NoError(t, err)
	code, err := e.GenerateRecoveryCode(ctx, "pw", s)
	require.NoError(t, err)
	recoveryKey, err := e.GeneratePasswordSecretBoxKey(ctx, code, s)
	require.NoError(t, err)

	wrapped, err := e.EncryptPrivateKey(ctx, recoveryKey, "private-key")
	require.NoError(t, err)

	got, err := e.DecryptPrivateKeyRecovery(ctx, code, wrapped, s)
	require.NoError(t, err)
	assert.Equal(t, "private-key", got)

	_, err = e.DecryptPrivateKeyRecovery(ctx, "AAAA-BBBB", wrapped, s)
	assert.Error(t, err)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	for _, scheme := range []Scheme{SchemeX25519, SchemeSecp256k1} {
		t.Run(string(scheme), func(t *testing.T) {
			e := newTestEngine(t, WithScheme(scheme))
			ctx := context.Background()

			kp, err := e.GenerateAsymmetricKeys(ctx)
			require.NoError(t, err)
			other, err := e.GenerateAsymmetricKeys(ctx)
			require.NoError(t, err)

			ct, err := e.EncryptWithPublicKeyPair(ctx, `[{"i":"1","v":"secret"}]`, kp.PublicKey)
			require.NoError(t, err)

			pt, err := e.DecryptWithPrivateKeyPair(ctx, ct, kp.PublicKey, kp.PrivateKey)
			require.NoError(t, err)
			assert.Equal(t, `[{"i":"1","v":"secret"}]`, pt)

			_, err = e.DecryptWithPrivateKeyPair(ctx, ct, other.PublicKey, other.PrivateKey)
			assert.Error(t, err)
		})
	}
}

func TestPasswordChange(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	s, err := e.GenerateUserSalt(ctx)
	require.NoError(t, err)
	oldKey, err := e.GeneratePasswordSecretBoxKey(ctx, "old", s)
	require.NoError(t, err)
	newKey, err := e.GeneratePasswordSecretBoxKey(ctx, "new", s)
	require.NoError(t, err)

	wrapped, err := e.EncryptPrivateKey(ctx, oldKey, "pk")
	require.NoError(t, err)

	res, err := e.PasswordChange(ctx, oldKey, newKey, wrapped)
	require.NoError(t, err)

	got, err := e.DecryptPrivateKey(ctx, newKey, res.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, "pk", got)

	_, err = e.PasswordChange(ctx, newKey, oldKey, wrapped)
	assert.Error(t, err)
}

func TestCancelledContext(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.GenerateUserSalt(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = e.GeneratePasswordSecretBoxKey(ctx, "pw", "mAAAAAAAAAAAAAAAAAAAAAA")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatRecoveryCode(t *testing.T) {
	code, err := formatRecoveryCode(make([]byte, 20))
	require.NoError(t, err)
	assert.Equal(t, "AAAA-AAAA-AAAA-AAAA-AAAA-AAAA-AAAA-AAAA", code)
}

func TestPasswordKeys_RejectShortSalt(t *testing.T) {
	e := newTestEngine(t)
	short, err := encodeBinary(make([]byte, 8))
	require.NoError(t, err)

	_, err = e.GeneratePasswordSecretBoxKey(context.Background(), "pw", short)
	assert.ErrorContains(t, err, "salt size too small")
}

func TestKDFConfig(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, *argon2.LightConfig(), e.KDFConfig())
}
