package salt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFrom(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"user size", UserSaltSize, false},
		{"large", 64, false},
		{"too small", 8, true},
		{"too large", MaxSaltSize + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := GenerateFrom(nil, tt.size)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, s.Bytes(), tt.size)
		})
	}
}

func TestGenerateFrom_Unique(t *testing.T) {
	a, err := GenerateFrom(nil, UserSaltSize)
	require.NoError(t, err)
	b, err := GenerateFrom(nil, UserSaltSize)
	require.NoError(t, err)
	assert.NotEqual(t, a.Bytes(), b.Bytes())
}

func TestGenerateFrom_Deterministic(t *testing.T) {
	src := bytes.Repeat([]byte{7}, UserSaltSize)
	s, err := GenerateFrom(bytes.NewReader(src), UserSaltSize)
	require.NoError(t, err)
	assert.Equal(t, src, s.Bytes())

	_, err = GenerateFrom(bytes.NewReader(src[:4]), UserSaltSize)
	assert.Error(t, err)
}

func TestFromBytes(t *testing.T) {
	raw := bytes.Repeat([]byte{1}, 16)
	s, err := FromBytes(raw)
	require.NoError(t, err)
	raw[0] = 9
	assert.Equal(t, byte(1), s.Bytes()[0])

	_, err = FromBytes(raw[:8])
	assert.ErrorContains(t, err, "too small")
}

func TestClear(t *testing.T) {
	s, err := GenerateFrom(nil, UserSaltSize)
	require.NoError(t, err)
	s.Clear()
	assert.Nil(t, s.Bytes())
}
