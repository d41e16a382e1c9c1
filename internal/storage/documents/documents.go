// Package documents maps the domain types onto collections of a
// docstore.Store.
package documents

import (
	"time"

	"github.com/xenking/greenbasket/pkg/docstore"
)

// Collection names.
const (
	CollectionProducts = "products"
	CollectionOrders   = "orders"
	CollectionRecipes  = "recipes"
	CollectionFAQ      = "faq"
	CollectionUsers    = "users"
	CollectionSessions = "sessions"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// first returns the value of the first present key. Older documents were
// written with Portuguese field names.
func first(f docstore.Fields, keys ...string) any {
	for _, k := range keys {
		if f.Has(k) {
			return f[k]
		}
	}
	return nil
}

func firstString(f docstore.Fields, keys ...string) string {
	s, _ := first(f, keys...).(string)
	return s
}
