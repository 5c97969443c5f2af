package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroize(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{4, 5}
	ZeroizeMultiple(a, b, nil)
	assert.Equal(t, []byte{0, 0, 0}, a)
	assert.Equal(t, []byte{0, 0}, b)
}

func TestArray32(t *testing.T) {
	raw := make([]byte, 32)
	raw[31] = 0xff
	arr, err := Array32(raw)
	require.NoError(t, err)
	assert.Equal(t, byte(0xff), arr[31])

	_, err = Array32(raw[:31])
	assert.Error(t, err)
}
