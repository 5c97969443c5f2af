package facade

import (
	"context"
	"errors"
	"fmt"

	"github.com/sonr-io/keybridge/keystore"
)

// ErrUserDoesNotExistLocally is matched by every UserDoesNotExistLocallyError.
var ErrUserDoesNotExistLocally = errors.New("user does not exist locally")

// UserDoesNotExistLocallyError reports a user id with no stored record.
type UserDoesNotExistLocallyError struct {
	UserID string
}

func (e *UserDoesNotExistLocallyError) Error() string {
	return fmt.Sprintf("user %q does not exist locally", e.UserID)
}

func (e *UserDoesNotExistLocallyError) Is(target error) bool {
	return target == ErrUserDoesNotExistLocally
}

// Session is the signed-in user's key material. PrivateKey is the wrapped
// form as stored.
type Session struct {
	UserID     string
	PublicKey  string
	PrivateKey string
}

// Session returns a snapshot of the current session.
func (f *Facade) Session() Session {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.session
}

// SetDataFromStorage selects userID as the current user, loading its record
// from the key store. An empty id clears the session.
func (f *Facade) SetDataFromStorage(ctx context.Context, userID string) error {
	if userID == "" {
		f.mu.Lock()
		f.session = Session{}
		f.mu.Unlock()
		return nil
	}

	rec, err := f.store.Load(ctx, userID)
	if errors.Is(err, keystore.ErrNotFound) {
		return &UserDoesNotExistLocallyError{UserID: userID}
	}
	if err != nil {
		return fmt.Errorf("load user %q: %w", userID, err)
	}

	f.mu.Lock()
	f.session = Session{UserID: rec.UID, PublicKey: rec.PublicKey, PrivateKey: rec.PrivateKey}
	f.mu.Unlock()
	return nil
}

// StoreDataForUser persists the key material of userID and then selects it.
func (f *Facade) StoreDataForUser(ctx context.Context, userID, publicKey, privateKey string) error {
	rec := keystore.Record{UID: userID, PublicKey: publicKey, PrivateKey: privateKey}
	if err := f.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("store user %q: %w", userID, err)
	}
	return f.SetDataFromStorage(ctx, userID)
}

// ClearData removes every stored record. It reports false when the store
// could not be cleared; the session itself is left untouched.
func (f *Facade) ClearData(ctx context.Context) bool {
	if err := f.store.Clear(ctx); err != nil {
		f.log.Error().Err(err).Msg("failed to clear key store")
		return false
	}
	return true
}
