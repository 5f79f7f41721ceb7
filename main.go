package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"buzzin/internal/config"
	"buzzin/internal/database/db_client"
	"buzzin/internal/game"
	"buzzin/internal/http/http_server"
	"buzzin/internal/http/roomhandler"
	"buzzin/internal/redis/redis_client"
	"buzzin/internal/store/pgstore"
	"buzzin/internal/store/redisstore"
	"buzzin/internal/syncdb"
	"buzzin/internal/ws"

	"go.uber.org/zap"
)

var (
	Log, _ = zap.NewDevelopment()
)

// durable is a store the process owns and must close on exit.
type durable interface {
	syncdb.Store
	Close() error
}

func openStore(ctx context.Context, cfg *config.Config) (durable, error) {
	switch cfg.StoreDriver {
	case "postgres":
		pgDb, err := db_client.Open(ctx, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
		if err != nil {
			return nil, err
		}
		st := pgstore.New(pgDb)
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, nil
	case "redis":
		rdc, err := redis_client.NewRedisClient(ctx, cfg.RedisHost, int(cfg.RedisPort), cfg.RedisDb)
		if err != nil {
			return nil, err
		}
		return redisstore.New(rdc), nil
	}
	return nil, nil
}

func main() {
	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.LogMode == "production" {
		if Log, err = zap.NewProduction(); err != nil {
			panic(err)
		}
	}
	defer Log.Sync()
	zap.ReplaceGlobals(Log)
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Optional durable store
	var journal game.Journal
	var writer *syncdb.Writer
	store, err := openStore(ctx, cfg)
	if err != nil {
		Log.Fatal("Failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	if store != nil {
		defer store.Close()
		writer = syncdb.NewWriter(store, 4096)
		journal = writer
		Log.Info("Store opened", zap.String("driver", cfg.StoreDriver))
	}

	// 4. WebSockets hub + room registry
	hub := ws.NewHub()
	rooms := game.NewRegistry(game.Options{
		Notifier: hub,
		Journal:  journal,
		Timing: game.Timing{
			Lock:        cfg.LockDuration,
			Decision:    cfg.DecisionDuration,
			IdleTimeout: cfg.RoomIdleTimeout,
		},
		CodeStyle: game.CodeStyle(cfg.RoomCodeStyle),
	})

	// 5. Restore persisted rooms, then keep the store in step
	var bg sync.WaitGroup
	if store != nil {
		n, err := syncdb.Restore(ctx, store, rooms)
		if err != nil {
			Log.Error("Failed to restore rooms", zap.Error(err))
		}
		Log.Info("Rooms restored", zap.Int("rooms", n))

		bg.Add(1)
		go func() {
			defer bg.Done()
			writer.Run(ctx)
		}()
		syncdb.RunMirror(ctx, rooms, writer, cfg.SyncInterval)
	}

	// 6. Background: idle-room sweeper
	rooms.RunSweeper(ctx, cfg.SweepInterval)

	// 7. Initialize the WS server
	wsSrv := ws.NewWsServer(hub, rooms, ws.Options{
		ReadLimit:      cfg.WsReadLimit,
		RateLimit:      cfg.WsRateLimit,
		RateBurst:      cfg.WsRateBurst,
		AllowedOrigins: cfg.CorsOrigins(),
	})

	// 8. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, cfg.CorsOrigins(), wsSrv,
		roomhandler.New(rooms, cfg.PublicURL))
	go func() {
		if err := httpServer.Start(); err != nil {
			Log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	Log.Info("Shutting down")
	_ = httpServer.Dispose()
	bg.Wait()
}
