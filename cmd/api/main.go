package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"example.com/notepad/internal/config"
	"example.com/notepad/internal/db"
	"example.com/notepad/internal/events"
	"example.com/notepad/internal/logging"
	"example.com/notepad/internal/middleware"
	"example.com/notepad/internal/notes"
	"example.com/notepad/internal/service"
)

func main() {
	cfg := config.Load()

	log, err := logging.New("notes-api", cfg.LogLevel)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(log, cfg); err != nil {
		log.Errorw("startup", "error", err)
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger, cfg config.Config) error {
	if _, err := maxprocs.Set(); err != nil {
		return fmt.Errorf("maxprocs: %w", err)
	}
	log.Infow("startup", "GOMAXPROCS", runtime.GOMAXPROCS(0), "store", cfg.StoreDriver)

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.CacheURL != "" {
		rdb, err := openCache(ctx, cfg.CacheURL)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		store = notes.NewCachedStore(store, rdb, cfg.CacheTTL, log)
		log.Infow("startup", "cache", cfg.CacheURL, "ttl", cfg.CacheTTL)
	}

	hub := events.NewHub(log)
	svc := service.New(store, hub)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r := chi.NewRouter()
	r.Use(chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.RequestLogger(log, "/health", "/ws"))
	r.Get("/ws", events.Handler(hub))
	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware, events.Origin)
		r.Mount("/", notes.NewHandlers(svc, log).Routes())
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		log.Infow("started http server", "addr", cfg.HTTPAddr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}
	return nil
}

// openStore builds the note store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg config.Config) (notes.Store, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		return notes.NewMemoryStore(), func() {}, nil
	case "postgres", "sqlite":
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.DatabaseURL == "" {
		return nil, nil, errors.New("DATABASE_URL is required")
	}
	conn, err := db.Open(ctx, cfg.StoreDriver, cfg.DatabaseURL, db.Pool{
		MaxOpen:     cfg.MaxOpenConns,
		MaxIdle:     cfg.MaxIdleConns,
		MaxLifetime: cfg.ConnMaxLifetime,
		MaxIdleTime: cfg.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, nil, err
	}

	repo, err := notes.NewRepository(ctx, conn.SQL, conn.Dialect)
	if err != nil {
		_ = conn.SQL.Close()
		return nil, nil, err
	}
	return repo, func() {
		_ = repo.Close()
		_ = conn.SQL.Close()
	}, nil
}

func openCache(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}
	return rdb, nil
}
