package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates the lifecycle states an order can be in. The set mirrors
// the persistence schema enum; no transition graph is enforced beyond
// "changing to the current value is a no-op".
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// Statuses lists all valid status values, in declaration order.
var Statuses = []Status{StatusPending, StatusPaid, StatusDelivered, StatusCancelled}

// ParseStatus validates a raw status string against the enum.
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Item is a single line item within an order. Price is snapshotted from the
// catalog at order-creation time and never refreshed; Name is a best-effort
// enrichment from the current catalog and is not persisted (nil when the
// catalog no longer knows the product).
type Item struct {
	ProductID string          `json:"productId"`
	Name      *string         `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Order aggregates an order and its line items. The order exclusively owns
// its items: they are created together and never updated independently.
type Order struct {
	ID          string          `json:"id"`
	Status      Status          `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	TotalItems  int             `json:"totalItems"`
	CreatedAt   time.Time       `json:"createdAt"`
	Items       []Item          `json:"OrderItem"`
}

// PageMeta describes the pagination window of a FindAll result.
type PageMeta struct {
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	LastPage    int   `json:"lastPage"`
	Limit       int   `json:"limit"`
	HasNextPage bool  `json:"hasNextPage"`
}

// Page is one page of orders plus its pagination metadata.
type Page struct {
	Data []Order  `json:"data"`
	Meta PageMeta `json:"meta"`
}

// Repository defines the persistence operations the service needs. Listing is
// always ordered by created_at ascending, id ascending as a tiebreak, so page
// slices are stable across calls for a given filter.
type Repository interface {
	// CreateWithItems persists the order and all its line items as one
	// atomic write.
	CreateWithItems(ctx context.Context, o *Order) error
	// GetByID returns the order with its items, or ErrOrderNotFound.
	GetByID(ctx context.Context, id string) (*Order, error)
	// CountByStatus counts orders matching the filter; a nil status matches
	// all statuses.
	CountByStatus(ctx context.Context, status *Status) (int64, error)
	// ListPage returns the slice [offset, offset+limit) of orders matching
	// the filter, without items.
	ListPage(ctx context.Context, status *Status, offset, limit int) ([]Order, error)
	// UpdateStatus sets the status of an existing order. It returns
	// ErrOrderNotFound when no row matches.
	UpdateStatus(ctx context.Context, id string, status Status) error
}
