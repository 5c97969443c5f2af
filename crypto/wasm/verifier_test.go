package wasm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHash(t *testing.T) {
	// sha256("abc")
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		ComputeHash([]byte("abc")),
	)
}

func TestBundleVerifier_Verify(t *testing.T) {
	bundle := []byte("\x00asm\x01\x00\x00\x00")
	const name = "https://cdn.example/engine/0.2.0/engine.wasm"

	v := NewBundleVerifier(0)
	v.Pin(name, strings.ToUpper(ComputeHash(bundle)))

	tests := []struct {
		name   string
		bundle string
		data   []byte
		reason string
	}{
		{"pinned match", name, bundle, ""},
		{"hash mismatch", name, []byte("tampered"), "hash mismatch"},
		{"unpinned", "other", bundle, "no pinned hash"},
		{"empty", name, nil, "empty bundle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(tt.bundle, tt.data)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			var verr *VerificationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.reason, verr.Reason)
		})
	}
}

func TestBundleVerifier_SizeLimit(t *testing.T) {
	v := NewBundleVerifier(4)
	v.Pin("b", ComputeHash([]byte("12345")))
	err := v.Verify("b", []byte("12345"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum")
}
