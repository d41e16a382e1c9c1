// Package recipe serves the recipe list with search and favorites.
package recipe

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Defaults applied to recipes with missing fields.
const (
	DefaultName  = "Unnamed Recipe"
	DefaultImage = "https://via.placeholder.com/200x300.png?text=No+Image"
)

// ErrNotFound is returned when a recipe does not exist.
var ErrNotFound = errors.New("recipe not found")

// Recipe is a cooking suggestion shown alongside the catalog.
type Recipe struct {
	ID         string
	Name       string
	PrepTime   int
	Servings   int
	Image      string
	IsFavorite bool
}

// Repository reads recipes and persists favorite flags.
type Repository interface {
	List(ctx context.Context) ([]Recipe, error)
	SetFavorite(ctx context.Context, id string, favorite bool) error
}

// Service caches recipes and applies favorite toggles locally before the
// repository confirms them.
type Service struct {
	repo Repository

	mu     sync.Mutex
	loaded bool
	items  []Recipe
	index  map[string]int

	pending sync.WaitGroup
}

// NewService creates a recipe Service. The cache is filled on first use.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) load(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

// Refresh reloads the cache from the repository.
func (s *Service) Refresh(ctx context.Context) error {
	items, err := s.repo.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list recipes")
	}
	index := make(map[string]int, len(items))
	for i, r := range items {
		index[r.ID] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.index = index
	s.loaded = true
	return nil
}

// List returns all recipes.
func (s *Service) List(ctx context.Context) ([]Recipe, error) {
	return s.Search(ctx, "")
}

// Search returns recipes whose name contains query, ignoring case and
// surrounding whitespace. A blank query matches everything.
func (s *Service) Search(ctx context.Context, query string) ([]Recipe, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))

	s.mu.Lock()
	defer s.mu.Unlock()
	if q == "" {
		return slices.Clone(s.items), nil
	}
	out := make([]Recipe, 0, len(s.items))
	for _, r := range s.items {
		if strings.Contains(strings.ToLower(r.Name), q) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ToggleFavorite flips the favorite flag of a recipe and returns the new
// state. The change is visible immediately; the repository write happens in
// the background and is rolled back locally if it fails.
func (s *Service) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	if err := s.load(ctx); err != nil {
		return false, err
	}

	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return false, ErrNotFound
	}
	favorite := !s.items[i].IsFavorite
	s.items[i].IsFavorite = favorite
	s.mu.Unlock()

	lg := zctx.From(ctx)
	bg := context.WithoutCancel(ctx)
	s.pending.Go(func() {
		if err := s.repo.SetFavorite(bg, id, favorite); err != nil {
			s.rollback(id, favorite)
			lg.Warn("Update recipe favorite failed, reverted",
				zap.String("recipe_id", id),
				zap.Bool("favorite", favorite),
				zap.Error(err),
			)
		}
	})
	return favorite, nil
}

// rollback undoes a failed toggle unless a later toggle already changed
// the flag again.
func (s *Service) rollback(id string, favorite bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok || s.items[i].IsFavorite != favorite {
		return
	}
	s.items[i].IsFavorite = !favorite
}

// Wait blocks until background favorite updates finish.
func (s *Service) Wait() {
	s.pending.Wait()
}
