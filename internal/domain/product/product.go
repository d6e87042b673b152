package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist in the
// catalog.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item as reported by the external products service.
// This service never owns or persists products; they are fetched on demand
// for price snapshots and name enrichment.
type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Lookup is the boundary to the external products service. Validate resolves
// a batch of product ids in a single round trip and returns the matching
// records. Ids unknown to the catalog are absent from the result; callers
// decide whether that is an error.
type Lookup interface {
	Validate(ctx context.Context, ids []string) ([]Product, error)
}
