package documents

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/greenbasket/internal/domain/product"
	"github.com/xenking/greenbasket/pkg/docstore"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository over the "products"
// collection.
type ProductRepository struct {
	store docstore.Store
}

// NewProductRepository returns a ProductRepository reading from store.
func NewProductRepository(store docstore.Store) *ProductRepository {
	return &ProductRepository{store: store}
}

// List returns all products. Documents with an unparseable price are
// skipped and logged.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	docs, err := r.store.ListAll(ctx, CollectionProducts)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return decodeProducts(ctx, docs), nil
}

// GetByID returns product.ErrNotFound for unknown ids.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	d, err := r.store.GetByID(ctx, CollectionProducts, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	p, err := decodeProduct(*d)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDs returns the products that exist among ids, in the order given,
// using a single store lookup. Unknown ids are omitted. Documents with an
// unparseable price are skipped and logged.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	docs, err := r.store.GetByIDs(ctx, CollectionProducts, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	return decodeProducts(ctx, docs), nil
}

func decodeProducts(ctx context.Context, docs []docstore.Document) []product.Product {
	products := make([]product.Product, 0, len(docs))
	for _, d := range docs {
		p, err := decodeProduct(d)
		if err != nil {
			zctx.From(ctx).Warn("Skip malformed product", zap.String("product_id", d.ID), zap.Error(err))
			continue
		}
		products = append(products, p)
	}
	return products
}

func decodeProduct(d docstore.Document) (product.Product, error) {
	price, err := product.ParsePrice(first(d.Fields, "price", "valor"))
	if err != nil {
		return product.Product{}, errors.Wrapf(err, "product %q", d.ID)
	}
	return product.Product{
		ID:          d.ID,
		Name:        firstString(d.Fields, "name", "nome"),
		Price:       price,
		Category:    d.Fields.String("category"),
		Description: d.Fields.String("description"),
		Image:       firstString(d.Fields, "image", "foto"),
	}, nil
}

// ProductFields encodes p for storage. Prices are stored as decimal strings.
func ProductFields(p product.Product) docstore.Fields {
	return docstore.Fields{
		"name":        p.Name,
		"price":       p.Price.StringFixed(2),
		"category":    p.Category,
		"description": p.Description,
		"image":       p.Image,
	}
}
