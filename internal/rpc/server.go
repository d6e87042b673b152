package rpc

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ServerConfig tunes the command server.
type ServerConfig struct {
	// QueueGroup balances commands across service instances.
	QueueGroup string
	// HandleTimeout bounds a single command, lookup and DB time included.
	HandleTimeout time.Duration
}

// Server binds the command subjects to the Handler over a NATS connection.
// Each inbound request runs to completion in its own goroutine (the NATS
// client dispatches per-subscription callbacks sequentially, suspending only
// on I/O) and always produces exactly one reply.
type Server struct {
	conn     *nats.Conn
	handler  *Handler
	lg       *zap.Logger
	cfg      ServerConfig
	requests metric.Int64Counter

	subs []*nats.Subscription
}

// NewServer constructs a Server. The meter provides the per-command request
// counter; pass a noop meter in tests.
func NewServer(conn *nats.Conn, handler *Handler, lg *zap.Logger, meter metric.Meter, cfg ServerConfig) (*Server, error) {
	requests, err := meter.Int64Counter("orders_rpc_requests_total",
		metric.WithDescription("Handled RPC commands by subject and status"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create request counter")
	}

	if cfg.QueueGroup == "" {
		cfg.QueueGroup = "orders"
	}
	if cfg.HandleTimeout <= 0 {
		cfg.HandleTimeout = 10 * time.Second
	}

	return &Server{
		conn:     conn,
		handler:  handler,
		lg:       lg,
		cfg:      cfg,
		requests: requests,
	}, nil
}

type commandFunc func(ctx context.Context, data []byte) (any, *Error)

// Start subscribes to all command subjects. It returns once the
// subscriptions are registered; replies are served until Drain.
func (s *Server) Start(ctx context.Context) error {
	commands := []struct {
		subject string
		fn      commandFunc
	}{
		{SubjectCreateOrder, s.handler.CreateOrder},
		{SubjectFindAllOrders, s.handler.FindAllOrders},
		{SubjectFindOneOrder, s.handler.FindOneOrder},
		{SubjectChangeOrderStatus, s.handler.ChangeOrderStatus},
	}

	for _, cmd := range commands {
		sub, err := s.conn.QueueSubscribe(cmd.subject, s.cfg.QueueGroup, s.dispatch(ctx, cmd.subject, cmd.fn))
		if err != nil {
			return errors.Wrapf(err, "subscribe %s", cmd.subject)
		}
		s.subs = append(s.subs, sub)
	}

	s.lg.Info("rpc server listening",
		zap.String("queue_group", s.cfg.QueueGroup),
		zap.Int("subjects", len(s.subs)))
	return nil
}

// dispatch wraps a command handler with timeout, panic recovery, logging,
// metrics and envelope encoding.
func (s *Server) dispatch(ctx context.Context, subject string, fn commandFunc) nats.MsgHandler {
	return func(msg *nats.Msg) {
		start := time.Now()

		handleCtx, cancel := context.WithTimeout(ctx, s.cfg.HandleTimeout)
		defer cancel()

		result, rpcErr := s.safeHandle(handleCtx, subject, fn, msg.Data)

		env := envelope{Error: rpcErr}
		if rpcErr == nil {
			data, err := json.Marshal(result)
			if err != nil {
				s.lg.Error("encode reply", zap.String("subject", subject), zap.Error(err))
				env.Error = Internal()
			} else {
				env.Data = data
			}
		}

		reply, err := json.Marshal(env)
		if err != nil {
			s.lg.Error("encode envelope", zap.String("subject", subject), zap.Error(err))
			return
		}
		if err := msg.Respond(reply); err != nil {
			s.lg.Warn("respond failed", zap.String("subject", subject), zap.Error(err))
		}

		statusCode := 200
		if env.Error != nil {
			statusCode = env.Error.Status
		}
		s.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("subject", subject),
			attribute.String("status", strconv.Itoa(statusCode)),
		))
		s.lg.Debug("command handled",
			zap.String("subject", subject),
			zap.Int("status", statusCode),
			zap.Duration("took", time.Since(start)))
	}
}

// safeHandle runs the command and converts panics into 500 replies so one
// bad payload cannot take the subscription down.
func (s *Server) safeHandle(ctx context.Context, subject string, fn commandFunc, data []byte) (result any, rpcErr *Error) {
	defer func() {
		if r := recover(); r != nil {
			s.lg.Error("panic in command handler",
				zap.String("subject", subject),
				zap.Any("panic", r),
				zap.Stack("stack"))
			result, rpcErr = nil, Internal()
		}
	}()

	return fn(ctx, data)
}

// Drain unsubscribes and flushes in-flight replies.
func (s *Server) Drain() error {
	for _, sub := range s.subs {
		if err := sub.Drain(); err != nil {
			return errors.Wrapf(err, "drain %s", sub.Subject)
		}
	}
	return s.conn.FlushTimeout(5 * time.Second)
}
