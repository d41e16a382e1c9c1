// Package handler implements the storefront JSON API on net/http.
package handler

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/greenbasket/internal/domain/auth"
	"github.com/xenking/greenbasket/internal/domain/cart"
	"github.com/xenking/greenbasket/internal/domain/faq"
	"github.com/xenking/greenbasket/internal/domain/order"
	"github.com/xenking/greenbasket/internal/domain/product"
	"github.com/xenking/greenbasket/internal/domain/recipe"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// Shipping is the flat fee shown in cart totals.
	Shipping decimal.Decimal
	// Currency formats amounts for display.
	Currency cart.Currency
	// ImageBaseURL is prepended to relative image paths. When empty, image
	// paths are returned as stored.
	ImageBaseURL string
}

// Deps are the services the API delegates to.
type Deps struct {
	Auth     *auth.Service
	Products product.Repository
	Carts    *cart.Registry
	Orders   *order.Service
	Recipes  *recipe.Service
	FAQ      *faq.Service
}

// Handler serves the /api routes.
type Handler struct {
	cfg Config
	Deps
}

// New constructs a Handler.
func New(cfg Config, deps Deps) *Handler {
	cfg.ImageBaseURL = strings.TrimRight(cfg.ImageBaseURL, "/")
	return &Handler{cfg: cfg, Deps: deps}
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/signup", h.SignUp)
	mux.HandleFunc("POST /api/auth/signin", h.SignIn)
	mux.HandleFunc("POST /api/auth/signout", h.authenticated(h.SignOut))

	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)

	mux.HandleFunc("GET /api/cart", h.authenticated(h.GetCart))
	mux.HandleFunc("DELETE /api/cart", h.authenticated(h.ClearCart))
	mux.HandleFunc("POST /api/cart/items", h.authenticated(h.AddCartItem))
	mux.HandleFunc("PATCH /api/cart/items/{id}", h.authenticated(h.UpdateCartItem))
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.authenticated(h.RemoveCartItem))

	mux.HandleFunc("POST /api/checkout", h.authenticated(h.Checkout))
	mux.HandleFunc("GET /api/orders", h.authenticated(h.ListOrders))
	mux.HandleFunc("POST /api/orders/{id}/rating", h.authenticated(h.RateOrder))

	mux.HandleFunc("GET /api/recipes", h.ListRecipes)
	mux.HandleFunc("POST /api/recipes/{id}/favorite", h.ToggleFavorite)
	mux.HandleFunc("GET /api/faq", h.ListFAQ)
}

// imageURL resolves relative image paths against the configured base URL.
func (h *Handler) imageURL(path string) string {
	if h.cfg.ImageBaseURL == "" || path == "" || strings.Contains(path, "://") {
		return path
	}
	return h.cfg.ImageBaseURL + "/" + strings.TrimLeft(path, "/")
}
