// Package memory provides an in-memory order repository with the same
// filtering and ordering semantics as the PostgreSQL implementation. It backs
// tests and database-less local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xenking/orders-ms/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository is a mutex-guarded map of orders. Stored values are copied
// on the way in and out so callers cannot mutate repository state.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]order.Order
}

// NewOrderRepository returns an empty in-memory repository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]order.Order)}
}

// CreateWithItems stores the order and its items. The single map write is the
// atomic counterpart of the SQL transaction.
func (r *OrderRepository) CreateWithItems(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders[o.ID] = copyOrder(*o)
	return nil
}

// GetByID returns the order with its items, or order.ErrOrderNotFound.
func (r *OrderRepository) GetByID(_ context.Context, id string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	cp := copyOrder(o)
	if cp.Items == nil {
		cp.Items = []order.Item{}
	}
	return &cp, nil
}

// CountByStatus counts orders matching the filter; nil matches all statuses.
func (r *OrderRepository) CountByStatus(_ context.Context, status *order.Status) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, o := range r.orders {
		if status == nil || o.Status == *status {
			total++
		}
	}
	return total, nil
}

// ListPage returns the slice [offset, offset+limit) of matching orders
// ordered by (CreatedAt, ID), without items.
func (r *OrderRepository) ListPage(_ context.Context, status *order.Status, offset, limit int) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]order.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if status == nil || o.Status == *status {
			cp := copyOrder(o)
			cp.Items = nil
			matched = append(matched, cp)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	if offset >= len(matched) {
		return []order.Order{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// UpdateStatus sets the status of an existing order.
func (r *OrderRepository) UpdateStatus(_ context.Context, id string, status order.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = status
	r.orders[id] = o
	return nil
}

func copyOrder(o order.Order) order.Order {
	o.Items = append([]order.Item(nil), o.Items...)
	return o
}
