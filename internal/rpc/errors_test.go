package rpc

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"

	"github.com/xenking/orders-ms/internal/domain/order"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"empty items", order.ErrEmptyItems, 400},
		{"invalid quantity", &order.InvalidQuantityError{ProductID: "P1"}, 400},
		{"product not found", &order.ProductNotFoundError{ProductID: "P1"}, 400},
		{"order not found", order.ErrOrderNotFound, 404},
		{"wrapped order not found", errors.Wrap(order.ErrOrderNotFound, "get order"), 404},
		{"no orders", &order.NoOrdersError{}, 404},
		{"page not found", &order.PageNotFoundError{Page: 7}, 404},
		{"unknown", errors.New("pg down"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, mapDomainError(tt.err).Status)
		})
	}
}

func TestInternalHidesCause(t *testing.T) {
	rpcErr := mapDomainError(errors.New("password=hunter2"))
	assert.NotContains(t, rpcErr.Message, "hunter2")
}

func TestDecodeProductsReply(t *testing.T) {
	t.Run("envelope", func(t *testing.T) {
		products, err := decodeProductsReply([]byte(
			`{"data":[{"id":"P1","name":"Widget","price":"10.5"}]}`,
		))
		assert.NoError(t, err)
		assert.Len(t, products, 1)
		assert.Equal(t, "Widget", products[0].Name)
	})

	t.Run("envelope error", func(t *testing.T) {
		_, err := decodeProductsReply([]byte(`{"error":{"status":404,"message":"nope"}}`))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "nope")
	})

	t.Run("bare array", func(t *testing.T) {
		products, err := decodeProductsReply([]byte(`[{"id":"P1","name":"Widget","price":"10"}]`))
		assert.NoError(t, err)
		assert.Len(t, products, 1)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := decodeProductsReply([]byte(`"???"`))
		assert.Error(t, err)
	})
}
