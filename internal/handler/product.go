package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/greenbasket/internal/domain/product"
)

// ListProducts handles GET /api/products. A storage failure renders an
// empty catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Products.List(r.Context())
	if err != nil {
		zctx.From(r.Context()).Warn("Load products failed", zap.Error(err))
		writeEmptyList(w)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, p := range products {
				h.encodeProduct(e, p)
			}
		})
	})
}

// GetProduct handles GET /api/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error(), "")
			return
		}
		zctx.From(r.Context()).Warn("Load product failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not load product", "")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeProduct(e, *p) })
}

func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		strField(e, "id", p.ID)
		strField(e, "name", p.Name)
		moneyField(e, "price", p.Price)
		strField(e, "formattedPrice", h.cfg.Currency.Format(p.Price))
		strField(e, "category", p.Category)
		strField(e, "description", p.Description)
		strField(e, "image", h.imageURL(p.Image))
	})
}
