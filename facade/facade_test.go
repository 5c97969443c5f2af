package facade

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonr-io/keybridge/crypto/argon2"
	"github.com/sonr-io/keybridge/engine/native"
	"github.com/sonr-io/keybridge/keystore"
	"github.com/sonr-io/keybridge/rpc"
)

func openTest(t *testing.T, store *keystore.Store) *Facade {
	t.Helper()
	f, err := Open(context.Background(), Options{
		Store:       store,
		Factory:     rpc.NewFactory(),
		Timeout:     10 * time.Second,
		Provisioner: &NativeProvisioner{KDFConfig: argon2.LightConfig()},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestOpen_PassThrough(t *testing.T) {
	f := openTest(t, nil)
	ctx := context.Background()

	salt, err := f.GenerateUserSalt(ctx)
	require.NoError(t, err)
	key, err := f.GeneratePasswordSecretBoxKey(ctx, "hunter2", salt)
	require.NoError(t, err)

	kp, err := f.GenerateAsymmetricKeys(ctx)
	require.NoError(t, err)
	wrapped, err := f.EncryptPrivateKey(ctx, key, kp.PrivateKey)
	require.NoError(t, err)
	unwrapped, err := f.DecryptPrivateKey(ctx, key, wrapped)
	require.NoError(t, err)
	assert.Equal(t, kp.PrivateKey, unwrapped)

	ct, err := f.EncryptWithPublicKeyPair(ctx, "hello", kp.PublicKey)
	require.NoError(t, err)
	msg, err := f.DecryptWithPrivateKeyPair(ctx, ct, kp.PublicKey, kp.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, "hello", msg)
}

func TestOpen_ConcurrentCalls(t *testing.T) {
	f := openTest(t, nil)
	ctx := context.Background()

	names := []string{"alice", "bob", "carol", "dave", "erin", "frank", "grace", "heidi"}
	want := make(map[string]string)
	for _, n := range names {
		h, err := f.GenerateUsernameHash(ctx, n)
		require.NoError(t, err)
		want[n] = h
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		for _, n := range names {
			wg.Add(1)
			go func(n string) {
				defer wg.Done()
				h, err := f.GenerateUsernameHash(ctx, n)
				assert.NoError(t, err)
				assert.Equal(t, want[n], h)
			}(n)
		}
	}
	wg.Wait()
}

func TestOpen_EngineErrorPropagates(t *testing.T) {
	f := openTest(t, nil)

	_, err := f.DecryptPrivateKey(context.Background(), "zBogus", "mAAAA")
	var engErr *rpc.EngineError
	require.True(t, errors.As(err, &engErr))
	assert.NotEmpty(t, engErr.Message)
}

func TestOpen_ProvisionFailure(t *testing.T) {
	_, err := Open(context.Background(), Options{
		Provisioner: ProvisionerFunc(func(context.Context) (rpc.Port, error) {
			return nil, errors.New("bundle unreachable")
		}),
	})
	assert.ErrorContains(t, err, "bundle unreachable")
}

func TestOpen_WaitsForReady(t *testing.T) {
	// A port that never posts the readiness marker.
	silent := ProvisionerFunc(func(context.Context) (rpc.Port, error) {
		local, _ := rpc.NewPipe()
		return local, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := Open(ctx, Options{Provisioner: silent, Path: "/encryption.wasm"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSetDataFromStorage(t *testing.T) {
	f := openTest(t, nil)
	ctx := context.Background()

	err := f.SetDataFromStorage(ctx, "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUserDoesNotExistLocally)
	assert.Contains(t, err.Error(), "ghost")
	var typed *UserDoesNotExistLocallyError
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, "ghost", typed.UserID)

	require.NoError(t, f.StoreDataForUser(ctx, "u1", "pub", "priv"))
	assert.Equal(t, Session{UserID: "u1", PublicKey: "pub", PrivateKey: "priv"}, f.Session())

	require.NoError(t, f.SetDataFromStorage(ctx, ""))
	assert.Equal(t, Session{}, f.Session())

	require.NoError(t, f.SetDataFromStorage(ctx, "u1"))
	assert.Equal(t, "u1", f.Session().UserID)
}

func TestStoreDataForUser_Overwrites(t *testing.T) {
	f := openTest(t, nil)
	ctx := context.Background()

	require.NoError(t, f.StoreDataForUser(ctx, "u1", "pub1", "priv1"))
	require.NoError(t, f.StoreDataForUser(ctx, "u2", "pub2", "priv2"))
	assert.Equal(t, Session{UserID: "u2", PublicKey: "pub2", PrivateKey: "priv2"}, f.Session())

	require.NoError(t, f.StoreDataForUser(ctx, "u1", "pub3", "priv3"))
	assert.Equal(t, Session{UserID: "u1", PublicKey: "pub3", PrivateKey: "priv3"}, f.Session())
}

func TestClearData(t *testing.T) {
	mem := keystore.NewMemory()
	f := openTest(t, keystore.New(mem))
	ctx := context.Background()

	require.NoError(t, f.StoreDataForUser(ctx, "u1", "pub", "priv"))
	require.NoError(t, f.StoreDataForUser(ctx, "u2", "pub", "priv"))
	assert.True(t, f.ClearData(ctx))
	assert.ErrorIs(t, f.SetDataFromStorage(ctx, "u1"), ErrUserDoesNotExistLocally)
	assert.ErrorIs(t, f.SetDataFromStorage(ctx, "u2"), ErrUserDoesNotExistLocally)

	require.NoError(t, mem.Close())
	assert.False(t, f.ClearData(ctx))
}

func TestClose_FailsLaterCalls(t *testing.T) {
	f, err := Open(context.Background(), Options{
		Factory:     rpc.NewFactory(),
		Provisioner: &NativeProvisioner{Scheme: native.SchemeSecp256k1, KDFConfig: argon2.LightConfig()},
	})
	require.NoError(t, err)

	kp, err := f.GenerateAsymmetricKeys(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, kp.PublicKey)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	_, err = f.GenerateUserSalt(context.Background())
	assert.ErrorIs(t, err, rpc.ErrClosed)
}
