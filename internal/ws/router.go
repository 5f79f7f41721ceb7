package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	ErrMalformed    = errors.New("malformed_request")
	ErrUnknownEvent = errors.New("unknown_event")
)

// ConnContext identifies the connection a frame arrived on.
type ConnContext struct {
	ConnID     string
	RemoteAddr string
}

// internal (untyped) handler signature.
type rawHandler func(ctx context.Context, c *ConnContext, body json.RawMessage) (any, error)

// Router keeps a map[event]handler, à‑la gin.Engine.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
	validate *validator.Validate
}

func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]rawHandler),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register binds an event to a strongly‑typed handler. Bodies are decoded
// into Req and validated before h runs; either failure is ErrMalformed. A
// frame whose context is already done is not applied.
func Register[Req any, Res any](
	r *Router,
	event string,
	h func(ctx context.Context, c *ConnContext, req Req) (Res, error),
) {
	if event == "" {
		panic("ws router: empty event")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v := r.validate
	r.handlers[event] = func(ctx context.Context, c *ConnContext, body json.RawMessage) (any, error) {
		var req Req
		if len(body) > 0 && string(body) != "null" {
			if err := json.Unmarshal(body, &req); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
		}
		if err := v.Struct(req); err != nil {
			var invalid *validator.InvalidValidationError
			if !errors.As(err, &invalid) {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return h(ctx, c, req)
	}
}

// dispatch is called by the server’s reader loop.
func (r *Router) dispatch(ctx context.Context, c *ConnContext, env Envelope) (any, error) {
	r.mu.RLock()
	h, ok := r.handlers[env.Event]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownEvent
	}
	return h(ctx, c, env.Body)
}
