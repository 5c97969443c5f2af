package argon2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKDF_DeriveKey(t *testing.T) {
	kdf := New(LightConfig())

	password := []byte("test-password")
	salt := []byte("salt-must-be-16b")

	key := kdf.DeriveKey(password, salt)
	assert.Len(t, key, int(kdf.config.KeyLength))

	// Same inputs should produce same key
	assert.Equal(t, key, kdf.DeriveKey(password, salt))

	assert.NotEqual(t, key, kdf.DeriveKey([]byte("different"), salt))
	assert.NotEqual(t, key, kdf.DeriveKey(password, []byte("other-salt-16byt")))
}

func TestNew_NilConfigUsesDefault(t *testing.T) {
	kdf := New(nil)
	assert.Equal(t, *DefaultConfig(), kdf.Config())
}

func TestDeriveSubkey(t *testing.T) {
	master := New(LightConfig()).DeriveKey([]byte("pw"), []byte("0123456789abcdef"))

	box, err := DeriveSubkey(master, LabelSecretBox, 32)
	require.NoError(t, err)
	auth, err := DeriveSubkey(master, LabelAuth, 32)
	require.NoError(t, err)
	rec, err := DeriveSubkey(master, LabelRecovery, 20)
	require.NoError(t, err)

	assert.Len(t, box, 32)
	assert.Len(t, rec, 20)
	assert.NotEqual(t, box, auth)

	again, err := DeriveSubkey(master, LabelSecretBox, 32)
	require.NoError(t, err)
	assert.Equal(t, box, again)

	_, err = DeriveSubkey(nil, LabelAuth, 32)
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"light", LightConfig(), false},
		{"nil", nil, true},
		{"zero time", &Config{Time: 0, Memory: 64 * 1024, Parallelism: 1, KeyLength: 32}, true},
		{"low memory", &Config{Time: 1, Memory: 1024, Parallelism: 1, KeyLength: 32}, true},
		{"zero parallelism", &Config{Time: 1, Memory: 64 * 1024, Parallelism: 0, KeyLength: 32}, true},
		{"short key", &Config{Time: 1, Memory: 64 * 1024, Parallelism: 1, KeyLength: 8}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
