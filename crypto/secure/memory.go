// Package secure provides explicit zeroization for key material held only
// for the duration of one engine operation.
package secure

import (
	"fmt"
	"runtime"
)

// Zeroize explicitly zeros out sensitive data
func Zeroize(data []byte) {
	if len(data) == 0 {
		return
	}

	for i := range data {
		data[i] = 0
	}

	// Keep the slice live so the writes are not elided
	runtime.KeepAlive(data)
}

// ZeroizeMultiple zeros multiple byte slices in a single call
func ZeroizeMultiple(slices ...[]byte) {
	for _, slice := range slices {
		Zeroize(slice)
	}
}

// Array32 copies b into a fixed 32-byte array as used by nacl. b must be
// exactly 32 bytes long.
func Array32(b []byte) (*[32]byte, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	var out [32]byte
	copy(out[:], b)
	return &out, nil
}
