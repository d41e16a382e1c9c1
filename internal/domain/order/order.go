package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Rating bounds accepted by Rate.
const (
	MinRating = 1
	MaxRating = 5
)

var (
	// ErrNotFound is returned when an order does not exist or belongs to
	// another user.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyItems is returned when checking out an empty cart.
	ErrEmptyItems = errors.New("items required")
	// ErrCheckoutInProgress is returned when a session submits a second
	// checkout while the first one is still pending.
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	// ErrInvalidRating is returned for ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// Order is the immutable snapshot taken at checkout. Prices are not part of
// the snapshot; they are re-resolved from the catalog when displayed.
type Order struct {
	ID        string
	UserID    string
	Items     []Item
	CreatedAt time.Time
	// Rating is nil until the user rates the order.
	Rating *int
}

// Rated reports whether the order carries a rating.
func (o *Order) Rated() bool {
	return o.Rating != nil
}

// Item is a single (product, quantity) pair of an order.
type Item struct {
	ProductID string
	Quantity  int
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create stores o and assigns o.ID.
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	SetRating(ctx context.Context, id string, rating int) error
}

// View is an order joined with current catalog data for display.
type View struct {
	ID        string
	CreatedAt time.Time
	Items     []ViewItem
	Value     decimal.Decimal
	Rating    *int
}

// Rated reports whether the viewed order carries a rating.
func (v View) Rated() bool {
	return v.Rating != nil
}

// ViewItem is an order item with the product's current name, price and image.
type ViewItem struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Image     string
}

// EventType names an order lifecycle event.
type EventType string

const (
	EventPlaced EventType = "order.placed"
	EventRated  EventType = "order.rated"
)

// Event describes a change to an order for downstream consumers.
type Event struct {
	Type    EventType
	OrderID string
	UserID  string
	Items   []Item
	Rating  int
	At      time.Time
}

// Publisher delivers order events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
