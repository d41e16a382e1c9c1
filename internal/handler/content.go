package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/greenbasket/internal/domain/recipe"
)

// ListRecipes handles GET /api/recipes?q=. A storage failure renders an
// empty list.
func (h *Handler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.Recipes.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		zctx.From(r.Context()).Warn("Load recipes failed", zap.Error(err))
		writeEmptyList(w)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, rec := range recipes {
				e.Obj(func(e *jx.Encoder) {
					strField(e, "id", rec.ID)
					strField(e, "name", rec.Name)
					intField(e, "prepTime", rec.PrepTime)
					intField(e, "servings", rec.Servings)
					strField(e, "image", h.imageURL(rec.Image))
					e.Field("isFavorite", func(e *jx.Encoder) { e.Bool(rec.IsFavorite) })
				})
			}
		})
	})
}

// ToggleFavorite handles POST /api/recipes/{id}/favorite and returns the new
// state immediately.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	favorite, err := h.Recipes.ToggleFavorite(r.Context(), id)
	if err != nil {
		if errors.Is(err, recipe.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error(), "")
			return
		}
		zctx.From(r.Context()).Warn("Toggle favorite failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not load recipes", "")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			strField(e, "id", id)
			e.Field("isFavorite", func(e *jx.Encoder) { e.Bool(favorite) })
		})
	})
}

// ListFAQ handles GET /api/faq.
func (h *Handler) ListFAQ(w http.ResponseWriter, r *http.Request) {
	entries, err := h.FAQ.List(r.Context())
	if err != nil {
		zctx.From(r.Context()).Warn("Load faq failed", zap.Error(err))
		writeEmptyList(w)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, entry := range entries {
				e.Obj(func(e *jx.Encoder) {
					strField(e, "id", entry.ID)
					strField(e, "title", entry.Title)
					strField(e, "content", entry.Content)
				})
			}
		})
	})
}
