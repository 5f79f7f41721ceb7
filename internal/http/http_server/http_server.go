package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"time"

	"buzzin/internal/http/roomhandler"
	"buzzin/internal/ws"

	"github.com/abrar71/swaggerfilesv2"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type httpServer struct {
	listenPort  uint16
	srv         http.Server
	ln          net.Listener
	corsOrigins []string
	rooms       *roomhandler.Handler
	wsSrv       *ws.WsServer
	ctx         context.Context
}

func NewHttpServer(ctx context.Context, listenPort uint16, corsOrigins []string, wsSrv *ws.WsServer, rooms *roomhandler.Handler) *httpServer {
	return &httpServer{
		listenPort:  listenPort,
		corsOrigins: corsOrigins,
		wsSrv:       wsSrv,
		rooms:       rooms,
		ctx:         ctx,
	}
}

// Engine builds the router with access logging, panic recovery and CORS in
// front of the websocket endpoint and the read-only room routes.
func (h *httpServer) Engine() *gin.Engine {
	routerEngine := gin.New()

	// Swagger UI and API specs (go tool swag init -o api_specs)
	routerEngine.StaticFS("/swagger-apis", http.FS(swaggerfilesv2.FS))
	routerEngine.Static("/api-specs", "api_specs")

	routerEngine.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))
	routerEngine.Use(cors.New(corsConfig(h.corsOrigins)))

	// websocket endpoint
	routerEngine.GET("/ws", h.wsSrv.Handle)

	// REST API
	h.rooms.Register(routerEngine)

	return routerEngine
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodOptions}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Start listens on the configured port and serves until Dispose is called.
func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	h.srv = http.Server{
		Handler:           h.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	zap.L().Info("http.listening", zap.String("addr", h.ln.Addr().String()))
	if err := h.srv.Serve(h.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in‑flight requests to finish.
func (h *httpServer) Dispose() error {
	// The parent context is already cancelled at shutdown.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), 10*time.Second)
	defer cancel()

	// Ask the server to shut down.
	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err // e.g. active conns didn’t finish in time
	}
	return nil
}
