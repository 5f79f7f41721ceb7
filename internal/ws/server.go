package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"buzzin/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 12 * time.Second
	pingPeriod      = 3 * time.Second // must be < pongWait
	dispatchTimeout = 1900 * time.Millisecond
)

type Options struct {
	ReadLimit      int64
	RateLimit      float64 // frames per second, <= 0 disables limiting
	RateBurst      int
	AllowedOrigins []string // "*" allows any origin
}

type WsServer struct {
	hub      *Hub
	router   *Router
	rooms    *game.Registry
	sessions *sessions
	upgrader websocket.Upgrader
	opts     Options
}

func NewWsServer(h *Hub, rooms *game.Registry, opts Options) *WsServer {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 4096
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 1
	}
	srv := &WsServer{
		hub:      h,
		router:   NewRouter(),
		rooms:    rooms,
		sessions: newSessions(),
		opts:     opts,
	}
	srv.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     srv.checkOrigin,
	}
	srv.registerHandlers() // ← all WS endpoints configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry‑point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(s.opts.ReadLimit)

	c := newClientConn(uuid.NewString(), rawConn)
	s.hub.register(c)
	remote := ginCtx.ClientIP()
	zap.L().Debug("ws.connected", zap.String("conn", c.id), zap.String("remote", remote))

	go c.writePump()
	go s.reader(c, remote)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(s.opts.AllowedOrigins, "*") || slices.Contains(s.opts.AllowedOrigins, origin)
}

func (s *WsServer) reader(c *clientConn, remote string) {
	defer s.disconnect(c)

	_ = c.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	c.rawConn.SetPongHandler(func(string) error {
		return c.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	limit := rate.Inf
	if s.opts.RateLimit > 0 {
		limit = rate.Limit(s.opts.RateLimit)
	}
	limiter := rate.NewLimiter(limit, s.opts.RateBurst)
	cc := &ConnContext{ConnID: c.id, RemoteAddr: remote}

	for {
		_, data, err := c.rawConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("ws.read", zap.String("conn", c.id), zap.Error(err))
			}
			return // client closed or errored
		}
		_ = c.rawConn.SetReadDeadline(time.Now().Add(pongWait))

		if !limiter.Allow() {
			zap.L().Debug("ws.rate_limited", zap.String("conn", c.id))
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			s.write(c, "error", Ack{Error: ErrMalformed.Error()})
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		res, err := s.router.dispatch(ctx, cc, env)
		cancel()

		// ---- failure -> {"event":"<evt>-ack", "body":{"ok":false,...}} ----
		if err != nil {
			s.fail(c, cc, env.Event, err)
			continue
		}

		// ---- success -> {"event":"<evt>-ack", "body":{"ok":true,...}} ----
		if res == nil {
			res = okAck()
		}
		s.write(c, env.Event+"-ack", res)
	}
}

func (s *WsServer) write(c *clientConn, event string, body any) {
	if msg, ok := encode(event, body); ok {
		c.enqueue(msg)
	}
}

func (s *WsServer) fail(c *clientConn, cc *ConnContext, event string, err error) {
	code := errorCode(err)
	zap.L().Debug("ws.rejected",
		zap.String("conn", cc.ConnID),
		zap.String("remote", cc.RemoteAddr),
		zap.String("event", event),
		zap.String("error", code),
	)
	s.write(c, event+"-ack", Ack{Error: code})
	if msg, shown := game.Visible(err); shown {
		s.write(c, EventErrorMessage, MessageBody{Message: msg})
	}
}

// disconnect runs once the reader has stopped: every room the connection was
// bound to sees it leave.
func (s *WsServer) disconnect(c *clientConn) {
	c.close()
	s.hub.unregister(c)
	for _, code := range s.sessions.release(c.id) {
		s.rooms.Disconnect(code, c.id)
	}
	zap.L().Debug("ws.closed", zap.String("conn", c.id))
}

var knownErrors = []error{
	ErrMalformed,
	ErrUnknownEvent,
	game.ErrRoomNotFound,
	game.ErrUnauthorized,
	game.ErrInvalidState,
	game.ErrTeamsIncomplete,
	game.ErrNoDecision,
	game.ErrQueueEmpty,
	game.ErrUnknownPlayer,
	game.ErrBuzzRejected,
	game.ErrNoCodeAvailable,
	game.ErrBadHostToken,
}

// errorCode is the wire code for err.
func errorCode(err error) string {
	for _, known := range knownErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	zap.L().Error("ws.handler", zap.Error(err))
	return "internal_error"
}
