package docstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Create(ctx, "products", Fields{"name": "Tomate", "price": 18.9})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := m.GetByID(ctx, "products", id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID)
	assert.Equal(t, "Tomate", doc.Fields.String("name"))
	assert.Equal(t, json.Number("18.9"), doc.Fields["price"])
	assert.False(t, doc.CreatedAt.IsZero())
}

func TestMemory_GetByID_NotFound(t *testing.T) {
	m := NewMemory()

	_, err := m.GetByID(context.Background(), "products", "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = m.Create(context.Background(), "products", Fields{})
	require.NoError(t, err)
	_, err = m.GetByID(context.Background(), "products", "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_GetByIDs(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	docs, err := m.GetByIDs(ctx, "products", []string{"x"})
	require.NoError(t, err)
	assert.Empty(t, docs)

	a, err := m.Create(ctx, "products", Fields{"name": "a"})
	require.NoError(t, err)
	b, err := m.Create(ctx, "products", Fields{"name": "b"})
	require.NoError(t, err)

	docs, err = m.GetByIDs(ctx, "products", []string{b, "missing", a, b})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, b, docs[0].ID)
	assert.Equal(t, a, docs[1].ID)

	docs[1].Fields["name"] = "changed"
	doc, err := m.GetByID(ctx, "products", a)
	require.NoError(t, err)
	assert.Equal(t, "a", doc.Fields.String("name"))
}

func TestMemory_ListAllKeepsCreationOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		id, err := m.Create(ctx, "faq", Fields{"title": name})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	docs, err := m.ListAll(ctx, "faq")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	for i, d := range docs {
		assert.Equal(t, ids[i], d.ID)
	}

	empty, err := m.ListAll(ctx, "recipes")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemory_UpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Create(ctx, "orders", Fields{"userId": "u1", "rating": nil})
	require.NoError(t, err)

	require.NoError(t, m.Update(ctx, "orders", id, Fields{"rating": 4}))

	doc, err := m.GetByID(ctx, "orders", id)
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.Fields.String("userId"))
	assert.Equal(t, 4, doc.Fields.Int("rating"))

	err = m.Update(ctx, "orders", "missing", Fields{"rating": 1})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ReadsAreIsolatedFromWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	fields := Fields{"name": "before"}
	id, err := m.Create(ctx, "recipes", fields)
	require.NoError(t, err)
	fields["name"] = "mutated"

	doc, err := m.GetByID(ctx, "recipes", id)
	require.NoError(t, err)
	doc.Fields["name"] = "also mutated"

	again, err := m.GetByID(ctx, "recipes", id)
	require.NoError(t, err)
	assert.Equal(t, "before", again.Fields.String("name"))
}

func TestMemory_ListWithFilter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, u := range []string{"u1", "u2", "u1"} {
		_, err := m.Create(ctx, "orders", Fields{"userId": u})
		require.NoError(t, err)
	}
	_, err := m.Create(ctx, "orders", Fields{"other": true})
	require.NoError(t, err)

	docs, err := m.List(ctx, "orders", Filter{Field: "userId", Value: "u1"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = m.List(ctx, "orders", Filter{Field: "userId", Value: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFields_Accessors(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	f, err := Normalize(Fields{
		"s":  "text",
		"n":  3,
		"fl": 2.0,
		"b":  true,
		"t":  now,
		"z":  nil,
	})
	require.NoError(t, err)

	assert.Equal(t, "text", f.String("s"))
	assert.Equal(t, "", f.String("n"))
	assert.Equal(t, "fallback", f.StringOr("missing", "fallback"))
	assert.Equal(t, 3, f.Int("n"))
	assert.Equal(t, 2, f.Int("fl"))
	assert.Equal(t, 0, f.Int("s"))
	assert.True(t, f.Bool("b"))
	assert.True(t, now.Equal(f.Time("t")))
	assert.True(t, f.Time("missing").IsZero())
	assert.False(t, f.Has("z"))
	assert.True(t, f.Has("s"))
}
