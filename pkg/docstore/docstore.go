// Package docstore defines a minimal document store organised in named
// collections. Documents are flat JSON objects addressed by an opaque id.
//
// Field values follow encoding/json semantics: numbers are json.Number,
// timestamps are RFC 3339 strings, nested objects are map[string]any and
// arrays are []any. Implementations normalise every write through a JSON
// round trip so readers observe the same shapes regardless of backend.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a document does not exist in a collection.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("document conflict")
)

// Fields is the field map of a single document.
type Fields map[string]any

// Document is a stored document together with its id.
type Document struct {
	ID        string
	Fields    Fields
	CreatedAt time.Time
}

// Filter selects documents whose top-level Field equals Value.
type Filter struct {
	Field string
	Value any
}

// Store is the storage collaborator used by the typed repositories.
type Store interface {
	// ListAll returns every document of the collection in creation order.
	ListAll(ctx context.Context, collection string) ([]Document, error)
	// GetByID returns ErrNotFound when the id is unknown.
	GetByID(ctx context.Context, collection, id string) (*Document, error)
	// GetByIDs returns the documents that exist among ids, in the order of
	// their first occurrence. Unknown ids are skipped.
	GetByIDs(ctx context.Context, collection string, ids []string) ([]Document, error)
	// Create stores fields as a new document and returns the generated id.
	Create(ctx context.Context, collection string, fields Fields) (string, error)
	// Update merges partial into the top-level fields of an existing document.
	Update(ctx context.Context, collection, id string, partial Fields) error
	// List returns documents matching the filter in creation order.
	List(ctx context.Context, collection string, filter Filter) ([]Document, error)
}

// Normalize returns a copy of f as it would read back from storage.
func Normalize(f Fields) (Fields, error) {
	if f == nil {
		return Fields{}, nil
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, errors.Wrap(err, "marshal fields")
	}
	return Decode(data)
}

// Decode parses a JSON object into Fields, keeping numbers as json.Number.
func Decode(data []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var f Fields
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decode fields")
	}
	if f == nil {
		f = Fields{}
	}
	return f, nil
}

// String returns the string value of key or "" when absent or not a string.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// StringOr returns the string value of key, or def when it is absent or empty.
func (f Fields) StringOr(key, def string) string {
	if s := f.String(key); s != "" {
		return s
	}
	return def
}

// Int returns the integer value of key. Non-numeric values yield 0.
func (f Fields) Int(key string) int {
	switch v := f[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return int(d.IntPart())
		}
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// Bool returns the boolean value of key, false when absent.
func (f Fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

// Time parses an RFC 3339 timestamp stored under key.
func (f Fields) Time(key string) time.Time {
	switch v := f[key].(type) {
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err == nil {
			return t
		}
	case time.Time:
		return v
	}
	return time.Time{}
}

// Has reports whether key is present with a non-null value.
func (f Fields) Has(key string) bool {
	v, ok := f[key]
	return ok && v != nil
}
