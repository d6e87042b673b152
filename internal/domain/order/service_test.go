package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/orders-ms/internal/domain/product"
)

// --- Mock implementations ---

type mockLookup struct {
	products []product.Product
	err      error
	lastIDs  []string
	calls    int
}

func (m *mockLookup) Validate(_ context.Context, ids []string) ([]product.Product, error) {
	m.calls++
	m.lastIDs = ids
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

type mockRepo struct {
	created     *Order
	createErr   error
	byID        map[string]*Order
	getErr      error
	total       int64
	countErr    error
	page        []Order
	listErr     error
	lastOffset  int
	lastLimit   int
	lastStatus  *Status
	updateCalls int
	updateErr   error
}

func (m *mockRepo) CreateWithItems(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = o
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Order, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	return &cp, nil
}

func (m *mockRepo) CountByStatus(_ context.Context, status *Status) (int64, error) {
	m.lastStatus = status
	return m.total, m.countErr
}

func (m *mockRepo) ListPage(_ context.Context, status *Status, offset, limit int) ([]Order, error) {
	m.lastStatus = status
	m.lastOffset = offset
	m.lastLimit = limit
	return m.page, m.listErr
}

func (m *mockRepo) UpdateStatus(_ context.Context, id string, _ Status) error {
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.byID[id]; !ok {
		return ErrOrderNotFound
	}
	return nil
}

// --- Helpers ---

func catalogWith(products ...product.Product) *mockLookup {
	return &mockLookup{products: products}
}

func testProduct(id, name, price string) product.Product {
	return product.Product{ID: id, Name: name, Price: decimal.RequireFromString(price)}
}

func statusPtr(s Status) *Status { return &s }

// --- Create ---

func TestCreate_TotalsMatchWorkedExample(t *testing.T) {
	catalog := catalogWith(
		testProduct("P1", "Widget", "10"),
		testProduct("P2", "Gadget", "5"),
	)
	repo := &mockRepo{}
	svc := NewService(repo, catalog)

	o, err := svc.Create(context.Background(), []CreateItem{
		{ProductID: "P1", Quantity: 2},
		{ProductID: "P2", Quantity: 1},
	})

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("25").Equal(o.TotalAmount))
	assert.Equal(t, 3, o.TotalItems)
	assert.Equal(t, StatusPending, o.Status)
	require.NotNil(t, repo.created)

	// Prices snapshotted per item, names enriched from the same lookup.
	require.Len(t, o.Items, 2)
	assert.True(t, decimal.RequireFromString("10").Equal(o.Items[0].Price))
	require.NotNil(t, o.Items[0].Name)
	assert.Equal(t, "Widget", *o.Items[0].Name)
	require.NotNil(t, o.Items[1].Name)
	assert.Equal(t, "Gadget", *o.Items[1].Name)
}

func TestCreate_EmptyItems(t *testing.T) {
	svc := NewService(&mockRepo{}, catalogWith())

	_, err := svc.Create(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestCreate_InvalidQuantity(t *testing.T) {
	svc := NewService(&mockRepo{}, catalogWith())

	_, err := svc.Create(context.Background(), []CreateItem{{ProductID: "P1", Quantity: 0}})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "P1", iqErr.ProductID)
}

func TestCreate_ProductMissingFromLookup(t *testing.T) {
	catalog := catalogWith(testProduct("P1", "Widget", "10"))
	svc := NewService(&mockRepo{}, catalog)

	_, err := svc.Create(context.Background(), []CreateItem{
		{ProductID: "P1", Quantity: 1},
		{ProductID: "P2", Quantity: 1},
	})

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "P2", pnfErr.ProductID)
}

func TestCreate_LookupFailure(t *testing.T) {
	catalog := &mockLookup{err: errors.New("nats timeout")}
	svc := NewService(&mockRepo{}, catalog)

	_, err := svc.Create(context.Background(), []CreateItem{{ProductID: "P1", Quantity: 1}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate products")
}

func TestCreate_PersistenceFailure(t *testing.T) {
	catalog := catalogWith(testProduct("P1", "Widget", "10"))
	repo := &mockRepo{createErr: errors.New("db down")}
	svc := NewService(repo, catalog)

	_, err := svc.Create(context.Background(), []CreateItem{{ProductID: "P1", Quantity: 1}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestCreate_DistinctIDsInSingleLookup(t *testing.T) {
	catalog := catalogWith(testProduct("P1", "Widget", "10"))
	svc := NewService(&mockRepo{}, catalog)

	_, err := svc.Create(context.Background(), []CreateItem{
		{ProductID: "P1", Quantity: 1},
		{ProductID: "P1", Quantity: 2},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, catalog.calls)
	assert.Equal(t, []string{"P1"}, catalog.lastIDs)
}

// --- FindAll ---

func TestFindAll_NoOrdersFailsEvenOnPageOne(t *testing.T) {
	svc := NewService(&mockRepo{total: 0}, catalogWith())

	_, err := svc.FindAll(context.Background(), Pagination{Page: 1, Status: statusPtr(StatusPaid)})

	var noErr *NoOrdersError
	require.ErrorAs(t, err, &noErr)
	require.NotNil(t, noErr.Status)
	assert.Equal(t, StatusPaid, *noErr.Status)
}

func TestFindAll_PageBeyondLastFails(t *testing.T) {
	svc := NewService(&mockRepo{total: 25}, catalogWith())

	_, err := svc.FindAll(context.Background(), Pagination{Page: 4, Limit: 10})

	var pErr *PageNotFoundError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, 4, pErr.Page)
}

func TestFindAll_LastPageHasNoNextPage(t *testing.T) {
	repo := &mockRepo{total: 25, page: []Order{{ID: "o1"}}}
	svc := NewService(repo, catalogWith())

	page, err := svc.FindAll(context.Background(), Pagination{Page: 3, Limit: 10})

	require.NoError(t, err)
	assert.Equal(t, int64(25), page.Meta.Total)
	assert.Equal(t, 3, page.Meta.LastPage)
	assert.False(t, page.Meta.HasNextPage)
	assert.Equal(t, 20, repo.lastOffset)
	assert.Equal(t, 10, repo.lastLimit)
}

func TestFindAll_DefaultsAndNextPage(t *testing.T) {
	repo := &mockRepo{total: 25, page: []Order{{ID: "o1"}}}
	svc := NewService(repo, catalogWith())

	page, err := svc.FindAll(context.Background(), Pagination{})

	require.NoError(t, err)
	assert.Equal(t, 1, page.Meta.Page)
	assert.Equal(t, 10, page.Meta.Limit)
	assert.True(t, page.Meta.HasNextPage)
	assert.Equal(t, 0, repo.lastOffset)
	assert.Nil(t, repo.lastStatus)
}

// --- FindOne ---

func TestFindOne_UnknownID(t *testing.T) {
	svc := NewService(&mockRepo{byID: map[string]*Order{}}, catalogWith())

	_, err := svc.FindOne(context.Background(), "missing")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestFindOne_PriceStaysSnapshot(t *testing.T) {
	stored := &Order{
		ID:     "o1",
		Status: StatusPending,
		Items: []Item{
			{ProductID: "P1", Price: decimal.RequireFromString("10"), Quantity: 2},
		},
	}
	// Catalog price changed after the order was created.
	catalog := catalogWith(testProduct("P1", "Widget", "99"))
	svc := NewService(&mockRepo{byID: map[string]*Order{"o1": stored}}, catalog)

	o, err := svc.FindOne(context.Background(), "o1")

	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.True(t, decimal.RequireFromString("10").Equal(o.Items[0].Price))
	require.NotNil(t, o.Items[0].Name)
	assert.Equal(t, "Widget", *o.Items[0].Name)
}

func TestFindOne_NameNilWhenCatalogForgotProduct(t *testing.T) {
	stored := &Order{
		ID:    "o1",
		Items: []Item{{ProductID: "gone", Price: decimal.NewFromInt(5), Quantity: 1}},
	}
	svc := NewService(&mockRepo{byID: map[string]*Order{"o1": stored}}, catalogWith())

	o, err := svc.FindOne(context.Background(), "o1")

	require.NoError(t, err)
	assert.Nil(t, o.Items[0].Name)
}

func TestFindOne_EmptyItemsSkipsLookup(t *testing.T) {
	catalog := catalogWith()
	svc := NewService(&mockRepo{byID: map[string]*Order{"o1": {ID: "o1"}}}, catalog)

	o, err := svc.FindOne(context.Background(), "o1")

	require.NoError(t, err)
	assert.Empty(t, o.Items)
	assert.Equal(t, 0, catalog.calls)
}

// --- ChangeStatus ---

func TestChangeStatus_SameStatusSkipsWrite(t *testing.T) {
	repo := &mockRepo{byID: map[string]*Order{"o1": {ID: "o1", Status: StatusPending}}}
	svc := NewService(repo, catalogWith())

	o, err := svc.ChangeStatus(context.Background(), "o1", StatusPending)

	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, 0, repo.updateCalls)
}

func TestChangeStatus_PersistsNewStatus(t *testing.T) {
	stored := &Order{
		ID:     "o1",
		Status: StatusPending,
		Items:  []Item{{ProductID: "P1", Price: decimal.NewFromInt(10), Quantity: 1}},
	}
	repo := &mockRepo{byID: map[string]*Order{"o1": stored}}
	catalog := catalogWith(testProduct("P1", "Widget", "10"))
	svc := NewService(repo, catalog)

	o, err := svc.ChangeStatus(context.Background(), "o1", StatusPaid)

	require.NoError(t, err)
	assert.Equal(t, StatusPaid, o.Status)
	assert.Equal(t, 1, repo.updateCalls)

	// Both branches return the enriched shape.
	require.Len(t, o.Items, 1)
	require.NotNil(t, o.Items[0].Name)
	assert.Equal(t, "Widget", *o.Items[0].Name)
}

func TestChangeStatus_UnknownID(t *testing.T) {
	svc := NewService(&mockRepo{byID: map[string]*Order{}}, catalogWith())

	_, err := svc.ChangeStatus(context.Background(), "missing", StatusPaid)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("DELIVERED")
	require.True(t, ok)
	assert.Equal(t, StatusDelivered, st)

	_, ok = ParseStatus("SHIPPED")
	assert.False(t, ok)
}
