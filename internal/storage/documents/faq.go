package documents

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/greenbasket/internal/domain/faq"
	"github.com/xenking/greenbasket/pkg/docstore"
)

var _ faq.Repository = (*FAQRepository)(nil)

// FAQRepository implements faq.Repository over the "faq" collection.
type FAQRepository struct {
	store docstore.Store
}

func NewFAQRepository(store docstore.Store) *FAQRepository {
	return &FAQRepository{store: store}
}

func (r *FAQRepository) List(ctx context.Context) ([]faq.Entry, error) {
	docs, err := r.store.ListAll(ctx, CollectionFAQ)
	if err != nil {
		return nil, errors.Wrap(err, "list faq")
	}
	entries := make([]faq.Entry, len(docs))
	for i, d := range docs {
		entries[i] = faq.Entry{
			ID:      d.ID,
			Title:   d.Fields.String("title"),
			Content: d.Fields.String("content"),
		}
	}
	return entries, nil
}

// FAQFields encodes e for storage.
func FAQFields(e faq.Entry) docstore.Fields {
	return docstore.Fields{"title": e.Title, "content": e.Content}
}
