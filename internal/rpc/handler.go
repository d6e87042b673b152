package rpc

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/orders-ms/internal/domain/order"
)

// Command subjects served by this service. They match the message patterns of
// the wider platform, so the names are part of the external contract.
const (
	SubjectCreateOrder       = "create_order"
	SubjectFindAllOrders     = "find_all_orders"
	SubjectFindOneOrder      = "find_one_order"
	SubjectChangeOrderStatus = "change_order_status"
)

// Handler decodes command payloads, performs data-shape validation and
// delegates to the order service. It carries no business logic of its own.
type Handler struct {
	orders *order.Service
	lg     *zap.Logger
}

// NewHandler constructs a Handler around the order service.
func NewHandler(orders *order.Service, lg *zap.Logger) *Handler {
	return &Handler{orders: orders, lg: lg}
}

// fail maps a service error to a transport error, keeping the full cause in
// the logs. Only the mapped status and message leave the process.
func (h *Handler) fail(command string, err error) *Error {
	rpcErr := mapDomainError(err)
	if rpcErr.Status >= 500 {
		h.lg.Error("command failed", zap.String("command", command), zap.Error(err))
	} else {
		h.lg.Warn("command rejected", zap.String("command", command), zap.Error(err))
	}
	return rpcErr
}

type createOrderPayload struct {
	Items []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
}

type findAllPayload struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Status string `json:"status"`
}

type findOnePayload struct {
	ID string `json:"id"`
}

type changeStatusPayload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateOrder handles the create_order command.
func (h *Handler) CreateOrder(ctx context.Context, data []byte) (any, *Error) {
	var req createOrderPayload
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, BadRequest("malformed create_order payload")
	}
	if len(req.Items) == 0 {
		return nil, BadRequest("items must not be empty")
	}

	items := make([]order.CreateItem, len(req.Items))
	for i, item := range req.Items {
		if item.ProductID == "" {
			return nil, BadRequest("items[].productId is required")
		}
		if item.Quantity <= 0 {
			return nil, BadRequest("items[].quantity must be greater than 0")
		}
		items[i] = order.CreateItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	o, err := h.orders.Create(ctx, items)
	if err != nil {
		return nil, h.fail(SubjectCreateOrder, err)
	}
	return o, nil
}

// FindAllOrders handles the find_all_orders command.
func (h *Handler) FindAllOrders(ctx context.Context, data []byte) (any, *Error) {
	req := findAllPayload{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, BadRequest("malformed find_all_orders payload")
		}
	}

	p := order.Pagination{Page: req.Page, Limit: req.Limit}
	if req.Status != "" {
		st, ok := order.ParseStatus(req.Status)
		if !ok {
			return nil, BadRequest("status must be one of " + statusList())
		}
		p.Status = &st
	}

	page, err := h.orders.FindAll(ctx, p)
	if err != nil {
		return nil, h.fail(SubjectFindAllOrders, err)
	}
	return page, nil
}

// FindOneOrder handles the find_one_order command. The payload is either a
// bare JSON string id or an object with an "id" field.
func (h *Handler) FindOneOrder(ctx context.Context, data []byte) (any, *Error) {
	id, rpcErr := decodeOrderID(data)
	if rpcErr != nil {
		return nil, rpcErr
	}

	o, err := h.orders.FindOne(ctx, id)
	if err != nil {
		return nil, h.fail(SubjectFindOneOrder, err)
	}
	return o, nil
}

// ChangeOrderStatus handles the change_order_status command.
func (h *Handler) ChangeOrderStatus(ctx context.Context, data []byte) (any, *Error) {
	var req changeStatusPayload
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, BadRequest("malformed change_order_status payload")
	}
	if _, err := uuid.Parse(req.ID); err != nil {
		return nil, BadRequest("id must be a valid UUID")
	}
	st, ok := order.ParseStatus(req.Status)
	if !ok {
		return nil, BadRequest("status must be one of " + statusList())
	}

	o, err := h.orders.ChangeStatus(ctx, req.ID, st)
	if err != nil {
		return nil, h.fail(SubjectChangeOrderStatus, err)
	}
	return o, nil
}

func decodeOrderID(data []byte) (string, *Error) {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		var obj findOnePayload
		if err := json.Unmarshal(data, &obj); err != nil {
			return "", BadRequest("malformed find_one_order payload")
		}
		raw = obj.ID
	}
	if _, err := uuid.Parse(raw); err != nil {
		return "", BadRequest("id must be a valid UUID")
	}
	return raw, nil
}

func statusList() string {
	out := ""
	for i, st := range order.Statuses {
		if i > 0 {
			out += ", "
		}
		out += string(st)
	}
	return out
}
