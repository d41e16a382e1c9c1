package documents

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/greenbasket/internal/domain/order"
	"github.com/xenking/greenbasket/pkg/docstore"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository over the "orders" collection.
type OrderRepository struct {
	store docstore.Store
}

// NewOrderRepository returns an OrderRepository backed by store.
func NewOrderRepository(store docstore.Store) *OrderRepository {
	return &OrderRepository{store: store}
}

// Create persists a new order and assigns its id.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items := make([]any, len(o.Items))
	for i, it := range o.Items {
		items[i] = map[string]any{
			"productId": it.ProductID,
			"quantity":  it.Quantity,
		}
	}
	fields := docstore.Fields{
		"userId":    o.UserID,
		"createdAt": formatTime(o.CreatedAt),
		"items":     items,
		"rating":    nil,
	}
	if o.Rating != nil {
		fields["rating"] = *o.Rating
	}

	id, err := r.store.Create(ctx, CollectionOrders, fields)
	if err != nil {
		return errors.Wrap(err, "create order")
	}
	o.ID = id
	return nil
}

// Get returns order.ErrNotFound for unknown ids.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	d, err := r.store.GetByID(ctx, CollectionOrders, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o := decodeOrder(*d)
	return &o, nil
}

// ListByUser returns the orders placed by userID in storage order.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	docs, err := r.store.List(ctx, CollectionOrders, docstore.Filter{Field: "userId", Value: userID})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders := make([]order.Order, len(docs))
	for i, d := range docs {
		orders[i] = decodeOrder(d)
	}
	return orders, nil
}

// SetRating stores rating on the order.
func (r *OrderRepository) SetRating(ctx context.Context, id string, rating int) error {
	err := r.store.Update(ctx, CollectionOrders, id, docstore.Fields{"rating": rating})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return order.ErrNotFound
		}
		return errors.Wrapf(err, "rate order %q", id)
	}
	return nil
}

func decodeOrder(d docstore.Document) order.Order {
	o := order.Order{
		ID:        d.ID,
		UserID:    d.Fields.String("userId"),
		CreatedAt: d.Fields.Time("createdAt"),
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = d.CreatedAt
	}

	raw, _ := first(d.Fields, "items", "products", "produtos").([]any)
	o.Items = make([]order.Item, 0, len(raw))
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		f := docstore.Fields(m)
		o.Items = append(o.Items, order.Item{
			ProductID: firstString(f, "productId", "id"),
			Quantity:  intOf(f, "quantity", "quantidade"),
		})
	}

	for _, key := range []string{"rating", "avaliacao"} {
		if d.Fields.Has(key) {
			if rating := d.Fields.Int(key); rating >= order.MinRating {
				o.Rating = &rating
			}
			break
		}
	}
	return o
}

func intOf(f docstore.Fields, keys ...string) int {
	for _, k := range keys {
		if f.Has(k) {
			return f.Int(k)
		}
	}
	return 0
}
