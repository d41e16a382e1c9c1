package documents

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/greenbasket/internal/domain/auth"
	"github.com/xenking/greenbasket/internal/domain/cart"
	"github.com/xenking/greenbasket/internal/domain/faq"
	"github.com/xenking/greenbasket/internal/domain/order"
	"github.com/xenking/greenbasket/internal/domain/product"
	"github.com/xenking/greenbasket/internal/domain/recipe"
	"github.com/xenking/greenbasket/pkg/docstore"
)

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	kale, err := store.Create(ctx, CollectionProducts, ProductFields(product.Product{
		Name:  "Couve",
		Price: decimal.RequireFromString("18.90"),
		Image: "https://img/couve.png",
	}))
	require.NoError(t, err)
	legacy, err := store.Create(ctx, CollectionProducts, docstore.Fields{
		"nome":  "Abóbora",
		"valor": "R$ 24,50",
		"foto":  "https://img/abobora.png",
	})
	require.NoError(t, err)
	broken, err := store.Create(ctx, CollectionProducts, docstore.Fields{"name": "Broken", "price": "n/a"})
	require.NoError(t, err)

	repo := NewProductRepository(store)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Couve", all[0].Name)
	assert.True(t, all[0].Price.Equal(decimal.RequireFromString("18.90")))
	assert.Equal(t, "Abóbora", all[1].Name)
	assert.True(t, all[1].Price.Equal(decimal.RequireFromString("24.50")))
	assert.Equal(t, "https://img/abobora.png", all[1].Image)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, product.ErrNotFound)

	got, err := repo.GetByIDs(ctx, []string{legacy, "missing", broken, kale})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, legacy, got[0].ID)
	assert.Equal(t, kale, got[1].ID)

	_, err = repo.GetByID(ctx, broken)
	require.Error(t, err)
}

func TestOrderHistory_SkipsMalformedProducts(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	kale, err := store.Create(ctx, CollectionProducts, ProductFields(product.Product{
		Name:  "Couve",
		Price: decimal.RequireFromString("18.90"),
		Image: "https://img/couve.png",
	}))
	require.NoError(t, err)
	broken, err := store.Create(ctx, CollectionProducts, docstore.Fields{"name": "Broken", "price": "n/a"})
	require.NoError(t, err)

	orders := NewOrderRepository(store)
	require.NoError(t, orders.Create(ctx, &order.Order{
		UserID:    "u1",
		Items:     []order.Item{{ProductID: kale, Quantity: 2}, {ProductID: broken, Quantity: 1}},
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}))

	svc, err := order.NewService(order.Config{}, cart.NewRegistry(), NewProductRepository(store), orders, nil, order.Options{})
	require.NoError(t, err)

	views, err := svc.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Len(t, views[0].Items, 2)
	assert.Equal(t, "Couve", views[0].Items[0].Name)
	assert.Equal(t, "Product", views[0].Items[1].Name)
	assert.True(t, views[0].Items[1].UnitPrice.IsZero())
	assert.True(t, decimal.RequireFromString("37.80").Equal(views[0].Value), "value %s", views[0].Value)
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	repo := NewOrderRepository(store)

	createdAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	o := &order.Order{
		UserID:    "u1",
		Items:     []order.Item{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 1}},
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.Create(ctx, o))
	require.NotEmpty(t, o.ID)

	other := &order.Order{UserID: "u2", Items: []order.Item{{ProductID: "p1", Quantity: 1}}, CreatedAt: createdAt}
	require.NoError(t, repo.Create(ctx, other))

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Items, got.Items)
	assert.True(t, createdAt.Equal(got.CreatedAt))
	assert.False(t, got.Rated())

	mine, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, o.ID, mine[0].ID)

	require.NoError(t, repo.SetRating(ctx, o.ID, 4))
	got, err = repo.Get(ctx, o.ID)
	require.NoError(t, err)
	require.True(t, got.Rated())
	assert.Equal(t, 4, *got.Rating)

	require.ErrorIs(t, repo.SetRating(ctx, "missing", 3), order.ErrNotFound)
	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderRepository_LegacyDocument(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	id, err := store.Create(ctx, CollectionOrders, docstore.Fields{
		"userId":   "u1",
		"products": []any{map[string]any{"id": "p1", "quantity": 3}},
		"rating":   nil,
	})
	require.NoError(t, err)

	got, err := NewOrderRepository(store).Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []order.Item{{ProductID: "p1", Quantity: 3}}, got.Items)
	assert.False(t, got.Rated())
	assert.False(t, got.CreatedAt.IsZero())
}

func TestRecipeRepository(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	id, err := store.Create(ctx, CollectionRecipes, docstore.Fields{"prepTime": 15})
	require.NoError(t, err)
	_, err = store.Create(ctx, CollectionRecipes, RecipeFields(recipe.Recipe{
		Name: "Sopa", PrepTime: 30, Servings: 4, Image: "https://img/sopa.png",
	}))
	require.NoError(t, err)

	repo := NewRecipeRepository(store)
	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, recipe.DefaultName, got[0].Name)
	assert.Equal(t, recipe.DefaultImage, got[0].Image)
	assert.Equal(t, 15, got[0].PrepTime)
	assert.Equal(t, 4, got[1].Servings)

	require.NoError(t, repo.SetFavorite(ctx, id, true))
	got, err = repo.List(ctx)
	require.NoError(t, err)
	assert.True(t, got[0].IsFavorite)

	require.ErrorIs(t, repo.SetFavorite(ctx, "missing", true), recipe.ErrNotFound)
}

func TestFAQRepository(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	_, err := store.Create(ctx, CollectionFAQ, FAQFields(faq.Entry{Title: "Frete?", Content: "R$ 10,00"}))
	require.NoError(t, err)
	_, err = store.Create(ctx, CollectionFAQ, docstore.Fields{})
	require.NoError(t, err)

	got, err := NewFAQRepository(store).List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Frete?", got[0].Title)
	assert.Empty(t, got[1].Title)
	assert.Empty(t, got[1].Content)
}

func TestIdentityRepositories(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	users := NewUserRepository(store)
	sessions := NewSessionRepository(store)

	u := &auth.User{Email: "ana@example.com", PasswordHash: "hash", CreatedAt: time.Now()}
	require.NoError(t, users.Create(ctx, u))

	found, err := users.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = users.FindByEmail(ctx, "bob@example.com")
	require.ErrorIs(t, err, auth.ErrUserNotFound)
	_, err = users.Get(ctx, "missing")
	require.ErrorIs(t, err, auth.ErrUserNotFound)

	s := &auth.Session{UserID: u.ID, TokenHash: "abc", CreatedAt: time.Now()}
	require.NoError(t, sessions.Create(ctx, s))

	got, err := sessions.FindByTokenHash(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Nil(t, got.RevokedAt)

	require.NoError(t, sessions.Revoke(ctx, s.ID, time.Now()))
	got, err = sessions.FindByTokenHash(ctx, "abc")
	require.NoError(t, err)
	assert.NotNil(t, got.RevokedAt)

	_, err = sessions.FindByTokenHash(ctx, "nope")
	require.ErrorIs(t, err, auth.ErrSessionNotFound)
}

type conflictStore struct {
	docstore.Store
}

func (conflictStore) Create(context.Context, string, docstore.Fields) (string, error) {
	return "", docstore.ErrConflict
}

func TestUserRepository_CreateConflict(t *testing.T) {
	repo := NewUserRepository(conflictStore{Store: docstore.NewMemory()})

	u := &auth.User{Email: "ana@example.com", PasswordHash: "hash"}
	err := repo.Create(context.Background(), u)
	require.ErrorIs(t, err, auth.ErrEmailTaken)
	assert.Empty(t, u.ID)
}
