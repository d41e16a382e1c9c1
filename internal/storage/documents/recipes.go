package documents

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/greenbasket/internal/domain/recipe"
	"github.com/xenking/greenbasket/pkg/docstore"
)

var _ recipe.Repository = (*RecipeRepository)(nil)

// RecipeRepository implements recipe.Repository over the "recipes"
// collection.
type RecipeRepository struct {
	store docstore.Store
}

func NewRecipeRepository(store docstore.Store) *RecipeRepository {
	return &RecipeRepository{store: store}
}

func (r *RecipeRepository) List(ctx context.Context) ([]recipe.Recipe, error) {
	docs, err := r.store.ListAll(ctx, CollectionRecipes)
	if err != nil {
		return nil, errors.Wrap(err, "list recipes")
	}
	recipes := make([]recipe.Recipe, len(docs))
	for i, d := range docs {
		recipes[i] = recipe.Recipe{
			ID:         d.ID,
			Name:       d.Fields.StringOr("name", recipe.DefaultName),
			PrepTime:   d.Fields.Int("prepTime"),
			Servings:   d.Fields.Int("servings"),
			Image:      d.Fields.StringOr("image", recipe.DefaultImage),
			IsFavorite: d.Fields.Bool("isFavorite"),
		}
	}
	return recipes, nil
}

func (r *RecipeRepository) SetFavorite(ctx context.Context, id string, favorite bool) error {
	err := r.store.Update(ctx, CollectionRecipes, id, docstore.Fields{"isFavorite": favorite})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return recipe.ErrNotFound
		}
		return errors.Wrapf(err, "update recipe %q", id)
	}
	return nil
}

// RecipeFields encodes rec for storage.
func RecipeFields(rec recipe.Recipe) docstore.Fields {
	return docstore.Fields{
		"name":       rec.Name,
		"prepTime":   rec.PrepTime,
		"servings":   rec.Servings,
		"image":      rec.Image,
		"isFavorite": rec.IsFavorite,
	}
}
