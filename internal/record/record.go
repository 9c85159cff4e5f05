// Package record defines the single tagged record type persisted by every
// bucket file: scalar keys, list meta records, and list item records are all
// instances of Record, distinguished only by Type and by how Key parses.
package record

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/gitkv-project/gitkv/internal/valuecodec"
)

// Type is the inferred payload kind of a Record's Value. Aliased from
// valuecodec so record and valuecodec don't form an import cycle: inference
// lives in valuecodec, the tag itself is used throughout record.
type Type = valuecodec.Type

const (
	TypeString Type = valuecodec.TypeString
	TypeNumber Type = valuecodec.TypeNumber
	TypeBinary Type = valuecodec.TypeBinary
	TypeObject Type = valuecodec.TypeObject
	TypeArray  Type = valuecodec.TypeArray
	TypeList   Type = valuecodec.TypeList
)

// Infer exposes valuecodec.Infer under the record package for callers that
// only import record.
func Infer(v any) Type { return valuecodec.Infer(v) }

// Encode exposes valuecodec.Encode under the record package.
func Encode(v any) any { return valuecodec.Encode(v) }

// ConflictLoser marks a list item record that lost a merge but was re-added
// under a fresh item id so its value isn't silently discarded.
type ConflictLoser struct {
	WinnerID string `json:"winnerId"`
}

// Record is the universal unit of persisted state: one per user key,
// including list meta keys and list item keys.
type Record struct {
	ID            string         `json:"id"`
	Key           string         `json:"key"`
	Type          Type           `json:"type"`
	Value         any            `json:"value"`
	CreatedAt     int64          `json:"createdAt"`
	UpdatedAt     int64          `json:"updatedAt"`
	DeletedAt     *int64         `json:"deletedAt"`
	ConflictLoser *ConflictLoser `json:"conflictLoser,omitempty"`
}

// Live reports whether the record has not been tombstoned.
func (r *Record) Live() bool {
	return r != nil && r.DeletedAt == nil
}

// NewID mints a fresh record/list-item identifier.
func NewID() string {
	return uuid.NewString()
}

// New creates a record for the first write of key, inferring Type from v and
// stamping CreatedAt/UpdatedAt to now (milliseconds).
func New(key string, v any, nowMs int64) *Record {
	return &Record{
		ID:        NewID(),
		Key:       key,
		Type:      Infer(v),
		Value:     Encode(v),
		CreatedAt: nowMs,
		UpdatedAt: nowMs,
	}
}

// Touch applies a mutation to an existing record in place: preserves ID and
// CreatedAt, advances UpdatedAt, clears any prior tombstone.
func (r *Record) Touch(v any, nowMs int64) {
	r.Type = Infer(v)
	r.Value = Encode(v)
	r.UpdatedAt = nowMs
	r.DeletedAt = nil
}

// Delete tombstones the record: value is retained for merge visibility, but
// DeletedAt == UpdatedAt marks it semantically absent. Delete is itself a
// write, per invariant 1.
func (r *Record) Delete(nowMs int64) {
	r.UpdatedAt = nowMs
	r.DeletedAt = &nowMs
}

// Clone returns a deep-enough copy safe to mutate independently (Value is
// shared for immutable payloads; binary []byte slices are copied).
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	if r.DeletedAt != nil {
		d := *r.DeletedAt
		cp.DeletedAt = &d
	}
	if r.ConflictLoser != nil {
		cl := *r.ConflictLoser
		cp.ConflictLoser = &cl
	}
	if b, ok := r.Value.([]byte); ok {
		nb := make([]byte, len(b))
		copy(nb, b)
		cp.Value = nb
	}
	return &cp
}

// wireRecord mirrors Record but carries Value as json.RawMessage so binary
// payloads can be base64-wrapped without reflecting that encoding back into
// the in-memory Value field (see valuecodec).
type wireRecord struct {
	ID            string         `json:"id"`
	Key           string         `json:"key"`
	Type          Type           `json:"type"`
	Value         json.RawMessage `json:"value"`
	CreatedAt     int64          `json:"createdAt"`
	UpdatedAt     int64          `json:"updatedAt"`
	DeletedAt     *int64         `json:"deletedAt"`
	ConflictLoser *ConflictLoser `json:"conflictLoser,omitempty"`
}

// MarshalJSON serializes binary values as base64 text so the bucket file
// round-trips through JSON faithfully.
func (r Record) MarshalJSON() ([]byte, error) {
	w := wireRecord{
		ID:            r.ID,
		Key:           r.Key,
		Type:          r.Type,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		DeletedAt:     r.DeletedAt,
		ConflictLoser: r.ConflictLoser,
	}

	var raw any = r.Value
	if r.Type == TypeBinary {
		b, ok := r.Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("record %q: type binary but value is %T", r.Key, r.Value)
		}
		raw = base64.StdEncoding.EncodeToString(b)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("record %q: marshal value: %w", r.Key, err)
	}
	w.Value = data

	return json.Marshal(w)
}

// UnmarshalJSON decodes base64 back into a byte slice when Type is binary.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	r.ID = w.ID
	r.Key = w.Key
	r.Type = w.Type
	r.CreatedAt = w.CreatedAt
	r.UpdatedAt = w.UpdatedAt
	r.DeletedAt = w.DeletedAt
	r.ConflictLoser = w.ConflictLoser

	if w.Type == TypeBinary {
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return fmt.Errorf("record %q: binary value not a string: %w", r.Key, err)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("record %q: invalid base64: %w", r.Key, err)
		}
		r.Value = b
		return nil
	}

	var v any
	if len(w.Value) > 0 {
		if err := json.Unmarshal(w.Value, &v); err != nil {
			return fmt.Errorf("record %q: unmarshal value: %w", r.Key, err)
		}
	}
	r.Value = v
	return nil
}
