// Package keystore persists per-user key records on the local device.
package keystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no record exists for a user id.
	ErrNotFound = errors.New("keystore: record not found")
	// ErrUnavailable is returned when the persistence medium cannot be used.
	ErrUnavailable = errors.New("keystore: medium unavailable")
)

// Record is the durable key material of one user. PrivateKey is always the
// wrapped form.
type Record struct {
	UID        string `json:"uid"`
	PublicKey  string `json:"pubk"`
	PrivateKey string `json:"privk"`
}

// Medium is a key/value persistence backend.
type Medium interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context) error
	Close() error
}

// Store reads and writes Records on a Medium.
type Store struct {
	medium Medium
}

// New returns a store over m. A nil medium yields a store whose every
// operation fails with ErrUnavailable.
func New(m Medium) *Store {
	return &Store{medium: m}
}

// Load returns the record stored for uid.
func (s *Store) Load(ctx context.Context, uid string) (Record, error) {
	if s == nil || s.medium == nil {
		return Record{}, ErrUnavailable
	}
	raw, err := s.medium.Get(ctx, uid)
	if err != nil {
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("keystore: decode record %q: %w", uid, err)
	}
	return rec, nil
}

// Save writes rec, replacing any record with the same UID.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if s == nil || s.medium == nil {
		return ErrUnavailable
	}
	if strings.TrimSpace(rec.UID) == "" {
		return fmt.Errorf("keystore: record uid is required")
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("keystore: encode record %q: %w", rec.UID, err)
	}
	return s.medium.Set(ctx, rec.UID, raw)
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	if s == nil || s.medium == nil {
		return ErrUnavailable
	}
	return s.medium.Clear(ctx)
}

// Close releases the medium.
func (s *Store) Close() error {
	if s == nil || s.medium == nil {
		return nil
	}
	return s.medium.Close()
}
