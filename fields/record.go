package fields

import (
	"context"
	"slices"

	"github.com/sonr-io/keybridge/sharing"
)

// Record is a stored item with encrypted custom fields and an optional
// shared payload. CustomFields and Sharing.Fields hold decrypted values and
// are only populated by the decorators below.
type Record struct {
	ID              string     `json:"id"`
	EncryptedFields []Envelope `json:"encryptedFields,omitempty"`
	CustomFields    []Field    `json:"customFields,omitempty"`
	Sharing         *Shared    `json:"sharing,omitempty"`
}

// Shared is the payload a record carries for a second party.
type Shared struct {
	Envelope   sharing.Envelope `json:"envelope"`
	Ciphertext string           `json:"ciphertext"`
	Fields     []Field          `json:"fields,omitempty"`
}

// WithDecryptedCustomFields returns rec with CustomFields decrypted. If any
// field fails, rec is returned unchanged and no field is set.
func (c *Codec) WithDecryptedCustomFields(ctx context.Context, rec Record) Record {
	decoded := make([]Field, 0, len(rec.EncryptedFields))
	for _, res := range c.DecryptFields(ctx, rec.EncryptedFields) {
		if res.Err != nil {
			c.log.Debug().Str("record", rec.ID).Str("field", res.ID).Err(res.Err).Msg("custom fields left encrypted")
			return rec
		}
		decoded = append(decoded, res.Field)
	}

	out := rec
	out.EncryptedFields = slices.Clone(rec.EncryptedFields)
	out.CustomFields = decoded
	return out
}

// WithDecryptedSharing returns rec with Sharing.Fields decrypted using the
// viewer's password. Any failure returns rec unchanged.
func (c *Codec) WithDecryptedSharing(ctx context.Context, rec Record, password string) Record {
	if rec.Sharing == nil {
		return rec
	}
	fs, err := c.DecryptSharedFields(ctx, rec.Sharing.Ciphertext, rec.Sharing.Envelope, password)
	if err != nil {
		c.log.Debug().Str("record", rec.ID).Err(err).Msg("shared fields left encrypted")
		return rec
	}

	shared := *rec.Sharing
	shared.Fields = fs
	out := rec
	out.Sharing = &shared
	return out
}
