package recipe

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mu        sync.Mutex
	recipes   []Recipe
	listErr   error
	setErr    error
	lists     int
	favorites map[string]bool
}

func (m *mockRepo) List(context.Context) ([]Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]Recipe, len(m.recipes))
	copy(out, m.recipes)
	return out, nil
}

func (m *mockRepo) SetFavorite(_ context.Context, id string, favorite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	if m.favorites == nil {
		m.favorites = map[string]bool{}
	}
	m.favorites[id] = favorite
	return nil
}

func sampleRecipes() []Recipe {
	return []Recipe{
		{ID: "r1", Name: "Salada de Quinoa", PrepTime: 20, Servings: 2},
		{ID: "r2", Name: "Sopa de Abóbora", PrepTime: 40, Servings: 4},
		{ID: "r3", Name: "Quiche de Espinafre", PrepTime: 50, Servings: 6, IsFavorite: true},
	}
}

func TestSearch(t *testing.T) {
	repo := &mockRepo{recipes: sampleRecipes()}
	svc := NewService(repo)
	ctx := context.Background()

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"r1", "r2", "r3"}},
		{"   ", []string{"r1", "r2", "r3"}},
		{"qui", []string{"r1", "r3"}},
		{"  SOPA ", []string{"r2"}},
		{"pizza", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := svc.Search(ctx, tt.query)
			require.NoError(t, err)
			var ids []string
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
	assert.Equal(t, 1, repo.lists, "cache loads once")
}

func TestList_Error(t *testing.T) {
	repo := &mockRepo{listErr: errors.New("offline")}
	svc := NewService(repo)

	_, err := svc.List(context.Background())
	require.Error(t, err)

	repo.listErr = nil
	repo.recipes = sampleRecipes()
	got, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestToggleFavorite(t *testing.T) {
	repo := &mockRepo{recipes: sampleRecipes()}
	svc := NewService(repo)
	ctx := context.Background()

	fav, err := svc.ToggleFavorite(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, fav)

	fav, err = svc.ToggleFavorite(ctx, "r3")
	require.NoError(t, err)
	assert.False(t, fav)

	svc.Wait()
	assert.Equal(t, map[string]bool{"r1": true, "r3": false}, repo.favorites)

	got, err := svc.List(ctx)
	require.NoError(t, err)
	assert.True(t, got[0].IsFavorite)
	assert.False(t, got[2].IsFavorite)
}

func TestToggleFavorite_RollbackOnFailure(t *testing.T) {
	repo := &mockRepo{recipes: sampleRecipes(), setErr: errors.New("write denied")}
	svc := NewService(repo)
	ctx := context.Background()

	fav, err := svc.ToggleFavorite(ctx, "r2")
	require.NoError(t, err)
	assert.True(t, fav, "local state flips before the write")

	svc.Wait()
	got, err := svc.List(ctx)
	require.NoError(t, err)
	assert.False(t, got[1].IsFavorite)
}

func TestToggleFavorite_NotFound(t *testing.T) {
	svc := NewService(&mockRepo{recipes: sampleRecipes()})

	_, err := svc.ToggleFavorite(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRefresh(t *testing.T) {
	repo := &mockRepo{recipes: sampleRecipes()}
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.List(ctx)
	require.NoError(t, err)

	repo.mu.Lock()
	repo.recipes = repo.recipes[:1]
	repo.mu.Unlock()
	require.NoError(t, svc.Refresh(ctx))

	got, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
