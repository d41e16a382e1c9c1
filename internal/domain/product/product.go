package product

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Category    string
	Description string
	Image       string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// ParsePrice converts a stored price into a decimal. Catalog documents carry
// either plain numbers or display strings such as "R$ 18,90". Negative
// prices are rejected.
func ParsePrice(v any) (decimal.Decimal, error) {
	d, err := parsePrice(v)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errors.Errorf("negative price %s", d)
	}
	return d, nil
}

func parsePrice(v any) (decimal.Decimal, error) {
	switch p := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return p, nil
	case json.Number:
		return decimal.NewFromString(p.String())
	case float64:
		return decimal.NewFromFloat(p), nil
	case int:
		return decimal.NewFromInt(int64(p)), nil
	case int64:
		return decimal.NewFromInt(p), nil
	case string:
		return parsePriceString(p)
	default:
		return decimal.Zero, errors.Errorf("unsupported price type %T", v)
	}
}

func parsePriceString(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return decimal.Zero, errors.Errorf("invalid price %q", s)
	}

	// A comma is a decimal separator; dots before it group thousands.
	if i := strings.LastIndexByte(cleaned, ','); i >= 0 {
		cleaned = strings.ReplaceAll(cleaned[:i], ".", "") + "." + cleaned[i+1:]
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "invalid price %q", s)
	}
	return d, nil
}
