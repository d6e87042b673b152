package rpc

import (
	"encoding/json"

	"github.com/go-faster/errors"

	"github.com/xenking/orders-ms/internal/domain/order"
)

// Error is the structured failure value serialized back to callers. Status
// follows HTTP semantics: 400 for rejected input, 404 for missing resources,
// 500 for everything the caller cannot act on.
type Error struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// BadRequest builds a 400 error.
func BadRequest(msg string) *Error {
	return &Error{Status: 400, Message: msg}
}

// NotFound builds a 404 error.
func NotFound(msg string) *Error {
	return &Error{Status: 404, Message: msg}
}

// Internal builds a 500 error with a fixed message; the root cause stays in
// the logs.
func Internal() *Error {
	return &Error{Status: 500, Message: "internal error, check logs"}
}

// envelope is the reply wire format: exactly one of Data or Error is set.
type envelope struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// mapDomainError converts tagged service errors to transport errors. Anything
// unrecognized (lookup transport failures, persistence failures) becomes an
// opaque 500; the dispatch loop logs the full cause.
func mapDomainError(err error) *Error {
	var (
		iqErr  *order.InvalidQuantityError
		pnfErr *order.ProductNotFoundError
		noErr  *order.NoOrdersError
		pgErr  *order.PageNotFoundError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems):
		return BadRequest(err.Error())
	case errors.As(err, &iqErr):
		return BadRequest(iqErr.Error())
	case errors.As(err, &pnfErr):
		return BadRequest(pnfErr.Error())
	case errors.Is(err, order.ErrOrderNotFound):
		return NotFound(err.Error())
	case errors.As(err, &noErr):
		return NotFound(noErr.Error())
	case errors.As(err, &pgErr):
		return NotFound(pgErr.Error())
	default:
		return Internal()
	}
}
