package order

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/greenbasket/internal/domain/cart"
	"github.com/xenking/greenbasket/internal/domain/product"
)

const instrumentationName = "github.com/xenking/greenbasket/internal/domain/order"

// Fallbacks used when an ordered product no longer exists in the catalog.
const (
	unknownProductName  = "Product"
	unknownProductImage = "https://via.placeholder.com/200"
)

// Config holds store-wide order settings.
type Config struct {
	// Shipping is the flat fee added to every checkout.
	Shipping decimal.Decimal
}

// Options holds optional Service dependencies. Zero values fall back to
// no-op telemetry and time.Now.
type Options struct {
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
	Now            func() time.Time
}

// CheckoutRequest identifies the cart to submit and its owner.
type CheckoutRequest struct {
	SessionID string
	UserID    string
}

// CheckoutResult holds the persisted order and the totals shown to the user
// at submission time.
type CheckoutResult struct {
	Order  *Order
	Items  []cart.LineItem
	Totals cart.Totals
}

// Service encapsulates checkout, rating and order history.
type Service struct {
	cfg      Config
	carts    *cart.Registry
	products product.Repository
	orders   Repository
	events   Publisher
	now      func() time.Time

	tracer  trace.Tracer
	placed  metric.Int64Counter
	failed  metric.Int64Counter
	ratings metric.Int64Histogram

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	cfg Config,
	carts *cart.Registry,
	products product.Repository,
	orders Repository,
	events Publisher,
	opts Options,
) (*Service, error) {
	if opts.MeterProvider == nil {
		opts.MeterProvider = metricnoop.NewMeterProvider()
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = tracenoop.NewTracerProvider()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	meter := opts.MeterProvider.Meter(instrumentationName)
	placed, err := meter.Int64Counter("basket.orders.placed",
		metric.WithDescription("Orders persisted by checkout"))
	if err != nil {
		return nil, errors.Wrap(err, "create placed counter")
	}
	failed, err := meter.Int64Counter("basket.orders.checkout_failures",
		metric.WithDescription("Checkouts that failed to persist"))
	if err != nil {
		return nil, errors.Wrap(err, "create failures counter")
	}
	ratings, err := meter.Int64Histogram("basket.orders.rating",
		metric.WithDescription("Submitted order ratings"))
	if err != nil {
		return nil, errors.Wrap(err, "create rating histogram")
	}

	return &Service{
		cfg:      cfg,
		carts:    carts,
		products: products,
		orders:   orders,
		events:   events,
		now:      opts.Now,
		tracer:   opts.TracerProvider.Tracer(instrumentationName),
		placed:   placed,
		failed:   failed,
		ratings:  ratings,
		inflight: make(map[string]struct{}),
	}, nil
}

func (s *Service) begin(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[sessionID]; busy {
		return false
	}
	s.inflight[sessionID] = struct{}{}
	return true
}

func (s *Service) end(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, sessionID)
}

// Checkout snapshots the session's cart into an order, persists it and, once
// storage acknowledges the write, removes the snapshotted lines from the
// cart. On failure the cart is left intact and no retry is attempted. A
// second checkout for the same session while one is pending fails with
// ErrCheckoutInProgress.
//
// The cart lock is not held while the order is written. Quantities added
// during submission stay in the cart, and a cart discarded meanwhile is not
// recreated.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	ctx, span := s.tracer.Start(ctx, "order.Checkout")
	defer span.End()

	if !s.begin(req.SessionID) {
		return nil, ErrCheckoutInProgress
	}
	defer s.end(req.SessionID)

	var (
		items  []cart.LineItem
		totals cart.Totals
	)
	_ = s.carts.With(req.SessionID, func(c *cart.Cart) error {
		items = c.Items()
		totals = c.Totals(s.cfg.Shipping)
		return nil
	})
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}

	o := &Order{
		UserID:    req.UserID,
		Items:     make([]Item, len(items)),
		CreatedAt: s.now().UTC(),
	}
	for i, it := range items {
		o.Items[i] = Item{ProductID: it.ID, Quantity: it.Quantity}
	}

	lg := zctx.From(ctx)
	if err := s.orders.Create(ctx, o); err != nil {
		s.failed.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order")
		lg.Error("Checkout failed, cart kept",
			zap.String("user_id", req.UserID),
			zap.Int("items", len(items)),
			zap.Error(err),
		)
		return nil, errors.Wrap(err, "create order")
	}

	_, _ = s.carts.WithExisting(req.SessionID, func(c *cart.Cart) error {
		c.Subtract(items)
		return nil
	})

	s.placed.Add(ctx, 1)
	span.SetAttributes(attribute.String("order.id", o.ID))
	lg.Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.String("total", totals.Total.String()),
	)

	s.publish(ctx, Event{
		Type:    EventPlaced,
		OrderID: o.ID,
		UserID:  o.UserID,
		Items:   o.Items,
		At:      o.CreatedAt,
	})

	return &CheckoutResult{Order: o, Items: items, Totals: totals}, nil
}

// Rate sets the rating of one of the user's orders. Repeating the stored
// value is a no-op; a different value overwrites it.
func (s *Service) Rate(ctx context.Context, userID, orderID string, rating int) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Rate")
	defer span.End()

	if rating < MinRating || rating > MaxRating {
		return nil, ErrInvalidRating
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	if o.Rating != nil && *o.Rating == rating {
		return o, nil
	}

	if err := s.orders.SetRating(ctx, orderID, rating); err != nil {
		span.RecordError(err)
		zctx.From(ctx).Error("Save rating failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, errors.Wrap(err, "set rating")
	}
	o.Rating = &rating
	s.ratings.Record(ctx, int64(rating))

	s.publish(ctx, Event{
		Type:    EventRated,
		OrderID: o.ID,
		UserID:  o.UserID,
		Rating:  rating,
		At:      s.now().UTC(),
	})

	return o, nil
}

// History returns the user's orders, newest first, with product data
// resolved from the catalog.
func (s *Service) History(ctx context.Context, userID string) ([]View, error) {
	ctx, span := s.tracer.Start(ctx, "order.History")
	defer span.End()

	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if len(orders) == 0 {
		return []View{}, nil
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, o := range orders {
		for _, it := range o.Items {
			if _, ok := seen[it.ProductID]; !ok {
				seen[it.ProductID] = struct{}{}
				ids = append(ids, it.ProductID)
			}
		}
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	catalog := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		catalog[p.ID] = p
	}

	views := make([]View, len(orders))
	for i, o := range orders {
		views[i] = buildView(o, catalog)
	}
	slices.SortStableFunc(views, func(a, b View) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return views, nil
}

func buildView(o Order, catalog map[string]product.Product) View {
	v := View{
		ID:        o.ID,
		CreatedAt: o.CreatedAt,
		Items:     make([]ViewItem, len(o.Items)),
		Value:     decimal.Zero,
		Rating:    o.Rating,
	}
	for i, it := range o.Items {
		vi := ViewItem{
			ProductID: it.ProductID,
			Name:      unknownProductName,
			UnitPrice: decimal.Zero,
			Quantity:  it.Quantity,
			Image:     unknownProductImage,
		}
		if p, ok := catalog[it.ProductID]; ok {
			vi.Name = p.Name
			vi.UnitPrice = p.Price
			if p.Image != "" {
				vi.Image = p.Image
			}
		}
		v.Items[i] = vi
		v.Value = v.Value.Add(vi.UnitPrice.Mul(decimal.NewFromInt(int64(vi.Quantity))))
	}
	return v
}

func (s *Service) publish(ctx context.Context, e Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		zctx.From(ctx).Warn("Publish order event failed",
			zap.String("type", string(e.Type)),
			zap.String("order_id", e.OrderID),
			zap.Error(err),
		)
	}
}
