package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/greenbasket/internal/domain/cart"
	"github.com/xenking/greenbasket/internal/domain/product"
)

// GetCart handles GET /api/cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, r, nil)
}

// ClearCart handles DELETE /api/cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	_ = h.Carts.With(p.SessionID, func(c *cart.Cart) error {
		c.Clear()
		return nil
	})
	w.WriteHeader(http.StatusNoContent)
}

// AddCartItem handles POST /api/cart/items. The line item takes the
// catalog's current name, price and image.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var (
		productID string
		quantity  = 1
	)
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			productID, err = d.Str()
		case "quantity":
			quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil || productID == "" {
		writeError(w, http.StatusBadRequest, errInvalidBody.Error(), "productId")
		return
	}
	if quantity < 1 {
		writeError(w, http.StatusUnprocessableEntity, cart.ErrInvalidQuantity.Error(), "quantity")
		return
	}

	p, err := h.Products.GetByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusUnprocessableEntity, err.Error(), "productId")
			return
		}
		zctx.From(r.Context()).Warn("Resolve cart product failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not load product", "")
		return
	}

	h.writeCart(w, r, func(c *cart.Cart) error {
		c.AddItem(cart.LineItem{
			ID:        p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  quantity,
			Image:     h.imageURL(p.Image),
		})
		return nil
	})
}

// UpdateCartItem handles PATCH /api/cart/items/{id}. Quantities below 1 are
// rejected; unknown ids leave the cart unchanged.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	quantity, seen := 0, false
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		seen = true
		var err error
		quantity, err = d.Int()
		return err
	})
	if err != nil || !seen {
		writeError(w, http.StatusBadRequest, errInvalidBody.Error(), "quantity")
		return
	}

	id := r.PathValue("id")
	h.writeCart(w, r, func(c *cart.Cart) error {
		return c.UpdateQuantity(id, quantity)
	})
}

// RemoveCartItem handles DELETE /api/cart/items/{id}. Removing an absent
// item succeeds.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.writeCart(w, r, func(c *cart.Cart) error {
		c.RemoveItem(id)
		return nil
	})
}

// writeCart applies mutate (if any) to the caller's cart and renders the
// result. Both happen under the cart lock so the response reflects exactly
// this mutation.
func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, mutate func(c *cart.Cart) error) {
	p := principalFrom(r.Context())

	var (
		items  []cart.LineItem
		totals cart.Totals
	)
	err := h.Carts.With(p.SessionID, func(c *cart.Cart) error {
		if mutate != nil {
			if err := mutate(c); err != nil {
				return err
			}
		}
		items = c.Items()
		totals = c.Totals(h.cfg.Shipping)
		return nil
	})
	if err != nil {
		if errors.Is(err, cart.ErrInvalidQuantity) {
			writeError(w, http.StatusUnprocessableEntity, err.Error(), "quantity")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, it := range items {
						h.encodeLineItem(e, it)
					}
				})
			})
			h.encodeTotals(e, totals)
		})
	})
}

func (h *Handler) encodeLineItem(e *jx.Encoder, it cart.LineItem) {
	e.Obj(func(e *jx.Encoder) {
		strField(e, "id", it.ID)
		strField(e, "name", it.Name)
		moneyField(e, "unitPrice", it.UnitPrice)
		intField(e, "quantity", it.Quantity)
		strField(e, "image", it.Image)
		moneyField(e, "lineTotal", it.Total())
	})
}

// encodeTotals writes the totals fields into the enclosing object.
func (h *Handler) encodeTotals(e *jx.Encoder, t cart.Totals) {
	moneyField(e, "subtotal", t.Subtotal)
	moneyField(e, "shipping", t.Shipping)
	moneyField(e, "total", t.Total)
	e.Field("formatted", func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			strField(e, "subtotal", h.cfg.Currency.Format(t.Subtotal))
			strField(e, "shipping", h.cfg.Currency.Format(t.Shipping))
			strField(e, "total", h.cfg.Currency.Format(t.Total))
		})
	})
}
