package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/orders-ms/internal/domain/product"
)

// Sentinel and tagged errors surfaced by the service. Creation failures are
// deliberately kept distinguishable (empty items vs. unknown product vs.
// store failure) instead of collapsing into one opaque error; the transport
// layer decides how much of that reaches the caller.
var (
	ErrEmptyItems    = errors.New("order must contain at least one item")
	ErrOrderNotFound = errors.New("order not found")
)

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// ProductNotFoundError indicates a referenced product the catalog does not
// know. Creation must fail rather than silently pricing the item as zero.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// NoOrdersError indicates an empty result set for a status filter. Reported
// as a failure rather than an empty list, even on page 1.
type NoOrdersError struct {
	Status *Status
}

func (e *NoOrdersError) Error() string {
	if e.Status == nil {
		return "no orders found"
	}
	return fmt.Sprintf("no orders found with status %s", *e.Status)
}

// PageNotFoundError indicates a requested page beyond the last page.
type PageNotFoundError struct {
	Page int
}

func (e *PageNotFoundError) Error() string {
	return fmt.Sprintf("page #%d not found", e.Page)
}

// CreateItem is one requested line of a new order.
type CreateItem struct {
	ProductID string
	Quantity  int
}

// Pagination is the input of FindAll. A nil Status matches all statuses.
type Pagination struct {
	Page   int
	Limit  int
	Status *Status
}

const (
	defaultPage  = 1
	defaultLimit = 10
)

// Service owns the order business rules: price computation, total
// aggregation, pagination math, status transitions and not-found detection.
// It composes a persistence port and the external product lookup.
type Service struct {
	repo    Repository
	catalog product.Lookup
}

// NewService constructs a Service with its two ports.
func NewService(repo Repository, catalog product.Lookup) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
	}
}

// Create validates the requested items against the catalog, snapshots prices,
// persists the order with its line items atomically and returns it with
// product names enriched from the same lookup result.
func (s *Service) Create(ctx context.Context, items []CreateItem) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	products, err := s.lookupProducts(ctx, distinct(ids))
	if err != nil {
		return nil, err
	}

	totalAmount := decimal.Zero
	totalItems := 0
	orderItems := make([]Item, len(items))
	for i, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		totalAmount = totalAmount.Add(p.Price.Mul(qty))
		totalItems += item.Quantity

		orderItems[i] = Item{
			ProductID: item.ProductID,
			Price:     p.Price,
			Quantity:  item.Quantity,
		}
	}

	o := &Order{
		ID:          uuid.NewString(),
		Status:      StatusPending,
		TotalAmount: totalAmount,
		TotalItems:  totalItems,
		CreatedAt:   time.Now().UTC(),
		Items:       orderItems,
	}
	if err := s.repo.CreateWithItems(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	enrichNames(o, products)
	return o, nil
}

// FindAll returns one page of orders matching the optional status filter.
// An empty result set and an out-of-range page both fail with a not-found
// error; page `lastPage` succeeds with hasNextPage=false.
func (s *Service) FindAll(ctx context.Context, p Pagination) (*Page, error) {
	if p.Page <= 0 {
		p.Page = defaultPage
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}

	total, err := s.repo.CountByStatus(ctx, p.Status)
	if err != nil {
		return nil, errors.Wrap(err, "count orders")
	}
	if total == 0 {
		return nil, &NoOrdersError{Status: p.Status}
	}

	lastPage := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	if p.Page > lastPage {
		return nil, &PageNotFoundError{Page: p.Page}
	}

	data, err := s.repo.ListPage(ctx, p.Status, (p.Page-1)*p.Limit, p.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	return &Page{
		Data: data,
		Meta: PageMeta{
			Total:       total,
			Page:        p.Page,
			LastPage:    lastPage,
			Limit:       p.Limit,
			HasNextPage: p.Page < lastPage,
		},
	}, nil
}

// FindOne returns an order with its line items enriched with current catalog
// names. Prices stay the historical snapshot. An order with zero items is
// valid and skips the lookup entirely.
func (s *Service) FindOne(ctx context.Context, id string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}

	if len(o.Items) == 0 {
		return o, nil
	}

	ids := make([]string, len(o.Items))
	for i, item := range o.Items {
		ids[i] = item.ProductID
	}
	products, err := s.lookupProducts(ctx, distinct(ids))
	if err != nil {
		return nil, err
	}

	enrichNames(o, products)
	return o, nil
}

// ChangeStatus transitions an order to the given status. Requesting the
// current status is an idempotent no-op that skips the persistence write.
// Both branches return the enriched FindOne shape.
func (s *Service) ChangeStatus(ctx context.Context, id string, status Status) (*Order, error) {
	o, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	if o.Status == status {
		return o, nil
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "update order status")
	}

	o.Status = status
	return o, nil
}

// lookupProducts fetches the given ids in a single batch and indexes the
// result by product id.
func (s *Service) lookupProducts(ctx context.Context, ids []string) (map[string]product.Product, error) {
	fetched, err := s.catalog.Validate(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "validate products")
	}

	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}
	return byID, nil
}

// distinct removes duplicate ids preserving first-seen order.
func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// enrichNames fills item names from the lookup result. Missing products leave
// the name nil rather than failing the read.
func enrichNames(o *Order, products map[string]product.Product) {
	for i := range o.Items {
		if p, ok := products[o.Items[i].ProductID]; ok {
			name := p.Name
			o.Items[i].Name = &name
		}
	}
}
