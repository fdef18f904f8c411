// Package kit holds the small transport-agnostic plumbing shared by
// the HTTP and MCP surfaces: the endpoint abstraction, middleware
// chaining, and request-scoped context values.
package kit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Endpoint is one transport-independent operation. Both the HTTP
// handlers and the MCP tools adapt their requests into an Endpoint
// call.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so the first argument is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Recover converts an endpoint panic into an error so one bad request
// cannot take down a shared transport session.
func Recover(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (resp any, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("endpoint panic", "panic", r)
					err = fmt.Errorf("kit: endpoint panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

// Logging logs every call with its duration and outcome.
func Logging(logger *slog.Logger, op string) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{
				"op", op,
				"transport", GetTransport(ctx),
				"request_id", GetRequestID(ctx),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if err != nil {
				logger.Warn("endpoint failed", append(attrs, "error", err)...)
			} else {
				logger.Info("endpoint ok", attrs...)
			}
			return resp, err
		}
	}
}
