package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/xenking/orders-ms/internal/domain/product"
)

// DefaultProductsSubject is the command the products service answers on.
const DefaultProductsSubject = "validate_products"

var _ product.Lookup = (*ProductClient)(nil)

// ProductClient implements product.Lookup by issuing a validate_products
// request to the products service. The request payload is a JSON array of
// product ids; the reply uses the shared data/error envelope.
type ProductClient struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
	lg      *zap.Logger
}

// NewProductClient constructs a ProductClient. An empty subject falls back to
// DefaultProductsSubject; a non-positive timeout falls back to 5s.
func NewProductClient(conn *nats.Conn, subject string, timeout time.Duration, lg *zap.Logger) *ProductClient {
	if subject == "" {
		subject = DefaultProductsSubject
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ProductClient{
		conn:    conn,
		subject: subject,
		timeout: timeout,
		lg:      lg,
	}
}

// Validate resolves the given ids in one round trip.
func (c *ProductClient) Validate(ctx context.Context, ids []string) ([]product.Product, error) {
	payload, err := json.Marshal(ids)
	if err != nil {
		return nil, errors.Wrap(err, "encode product ids")
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.conn.RequestWithContext(reqCtx, c.subject, payload)
	if err != nil {
		c.lg.Warn("product lookup request failed",
			zap.String("subject", c.subject),
			zap.Int("ids", len(ids)),
			zap.Error(err))
		return nil, errors.Wrap(err, "request products")
	}

	products, err := decodeProductsReply(msg.Data)
	if err != nil {
		c.lg.Warn("product lookup reply malformed", zap.String("subject", c.subject), zap.Error(err))
		return nil, err
	}
	return products, nil
}

// decodeProductsReply accepts either the data/error envelope or, for
// compatibility with older catalog deployments, a bare JSON array.
func decodeProductsReply(data []byte) ([]product.Product, error) {
	var env struct {
		Data  []product.Product `json:"data"`
		Error *Error            `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err == nil {
		if env.Error != nil {
			return nil, errors.Errorf("products service error (status %d): %s", env.Error.Status, env.Error.Message)
		}
		if env.Data != nil {
			return env.Data, nil
		}
	}

	var products []product.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, errors.Wrap(err, "decode products reply")
	}
	return products, nil
}
