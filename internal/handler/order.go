package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/greenbasket/internal/domain/order"
)

// Checkout handles POST /api/checkout. On success the cart is emptied and
// the order is returned with the totals shown at submission.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	result, err := h.Orders.Checkout(r.Context(), order.CheckoutRequest{
		SessionID: p.SessionID,
		UserID:    p.User.ID,
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("order", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					strField(e, "id", result.Order.ID)
					strField(e, "createdAt", result.Order.CreatedAt.Format(time.RFC3339))
					e.Field("items", func(e *jx.Encoder) {
						e.Arr(func(e *jx.Encoder) {
							for _, it := range result.Items {
								h.encodeLineItem(e, it)
							}
						})
					})
				})
			})
			h.encodeTotals(e, result.Totals)
		})
	})
}

// ListOrders handles GET /api/orders. A storage failure renders an empty
// history.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	views, err := h.Orders.History(r.Context(), p.User.ID)
	if err != nil {
		zctx.From(r.Context()).Warn("Load orders failed", zap.Error(err))
		writeEmptyList(w)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, v := range views {
				h.encodeOrderView(e, v)
			}
		})
	})
}

// RateOrder handles POST /api/orders/{id}/rating.
func (h *Handler) RateOrder(w http.ResponseWriter, r *http.Request) {
	rating, seen := 0, false
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		if key != "rating" {
			return d.Skip()
		}
		seen = true
		var err error
		rating, err = d.Int()
		return err
	})
	if err != nil || !seen {
		writeError(w, http.StatusBadRequest, errInvalidBody.Error(), "rating")
		return
	}

	p := principalFrom(r.Context())
	o, err := h.Orders.Rate(r.Context(), p.User.ID, r.PathValue("id"), rating)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			strField(e, "id", o.ID)
			e.Field("rated", func(e *jx.Encoder) { e.Bool(o.Rated()) })
			intField(e, "rating", *o.Rating)
		})
	})
}

func (h *Handler) encodeOrderView(e *jx.Encoder, v order.View) {
	e.Obj(func(e *jx.Encoder) {
		strField(e, "id", v.ID)
		strField(e, "createdAt", v.CreatedAt.Format(time.RFC3339))
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range v.Items {
					e.Obj(func(e *jx.Encoder) {
						strField(e, "productId", it.ProductID)
						strField(e, "name", it.Name)
						moneyField(e, "unitPrice", it.UnitPrice)
						intField(e, "quantity", it.Quantity)
						strField(e, "image", h.imageURL(it.Image))
					})
				}
			})
		})
		moneyField(e, "value", v.Value)
		strField(e, "formattedValue", h.cfg.Currency.Format(v.Value))
		e.Field("rated", func(e *jx.Encoder) { e.Bool(v.Rated()) })
		e.Field("rating", func(e *jx.Encoder) {
			if v.Rating == nil {
				e.Null()
				return
			}
			e.Int(*v.Rating)
		})
	})
}

// writeOrderError maps order service errors to API errors. Storage failures
// become 502; on checkout the cart has been kept.
func writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, "cart is empty", "")
	case errors.Is(err, order.ErrCheckoutInProgress):
		writeError(w, http.StatusConflict, err.Error(), "")
	case errors.Is(err, order.ErrInvalidRating):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "rating")
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "")
	default:
		writeError(w, http.StatusBadGateway, "could not save order, please try again", "")
	}
}
