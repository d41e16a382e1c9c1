package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memCollection

	now   func() time.Time
	newID func() string
}

type memCollection struct {
	order []string
	docs  map[string]*Document
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]*memCollection),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (m *Memory) collection(name string) *memCollection {
	c, ok := m.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string]*Document)}
		m.collections[name] = c
	}
	return c
}

// ListAll implements Store.
func (m *Memory) ListAll(ctx context.Context, collection string) ([]Document, error) {
	return m.List(ctx, collection, Filter{})
}

// GetByID implements Store.
func (m *Memory) GetByID(_ context.Context, collection, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	d, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneDocument(d)
	return &out, nil
}

// GetByIDs implements Store.
func (m *Memory) GetByIDs(_ context.Context, collection string, ids []string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Document, 0, len(ids))
	c, ok := m.collections[collection]
	if !ok {
		return out, nil
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if d, ok := c.docs[id]; ok {
			out = append(out, cloneDocument(d))
		}
	}
	return out, nil
}

// Create implements Store.
func (m *Memory) Create(_ context.Context, collection string, fields Fields) (string, error) {
	normalized, err := Normalize(fields)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(collection)
	id := m.newID()
	if _, exists := c.docs[id]; exists {
		return "", errors.Errorf("duplicate id %q in %s", id, collection)
	}
	c.docs[id] = &Document{ID: id, Fields: normalized, CreatedAt: m.now().UTC()}
	c.order = append(c.order, id)
	return id, nil
}

// Update implements Store.
func (m *Memory) Update(_ context.Context, collection, id string, partial Fields) error {
	normalized, err := Normalize(partial)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return ErrNotFound
	}
	d, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}
	merged := maps.Clone(d.Fields)
	maps.Copy(merged, normalized)
	d.Fields = merged
	return nil
}

// List implements Store. A zero Filter matches every document.
func (m *Memory) List(_ context.Context, collection string, filter Filter) ([]Document, error) {
	var want []byte
	if filter.Field != "" {
		b, err := json.Marshal(filter.Value)
		if err != nil {
			return nil, errors.Wrap(err, "marshal filter value")
		}
		want = b
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return []Document{}, nil
	}

	out := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		d := c.docs[id]
		if want != nil {
			v, ok := d.Fields[filter.Field]
			if !ok {
				continue
			}
			got, err := json.Marshal(v)
			if err != nil || !bytes.Equal(got, want) {
				continue
			}
		}
		out = append(out, cloneDocument(d))
	}
	return out, nil
}

// cloneDocument copies the top-level field map. Nested values are shared,
// which is fine because they are never mutated in place after normalisation.
func cloneDocument(d *Document) Document {
	return Document{
		ID:        d.ID,
		Fields:    maps.Clone(d.Fields),
		CreatedAt: d.CreatedAt,
	}
}
