package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var (
		tx port.TxManager
		db *sql.DB
	)
	switch cfg.Storage {
	case "memory":
		tx = storage.NewMemoryStore()
		log.Info("using in-memory storage")
	default:
		var err error
		db, err = sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Error("failed to open mysql", "err", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			log.Error("failed to ping mysql", "err", err)
			os.Exit(1)
		}
		log.Info("connected to mysql")
		tx = storage.NewMySQLStore(db)
	}

	// Request deduplication, enabled when Redis is configured
	var (
		idem port.IdempotencyStore
		rdb  *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect redis", "err", err)
			os.Exit(1)
		}
		log.Info("connected to redis")
		idem = storage.NewRedisIdempotencyStore(rdb)
	}

	// Services
	engine := service.NewReservationEngine(log)
	orders := service.NewOrderService(log, tx, engine, service.RetryConfig{
		MaxAttempts: cfg.RetryMaxAttempts,
		Backoff:     cfg.RetryBackoff,
	})
	products := service.NewProductService(log, tx)

	// Expiry sweeper
	sweeper := service.NewSweeper(log, orders, cfg.SweepInterval, cfg.OrderExpiration)
	go sweeper.Run(ctx)
	log.Info("sweeper started", "interval", cfg.SweepInterval, "expiration", cfg.OrderExpiration)

	// HTTP server
	httpHandler := handler.NewHTTPHandler(log, orders, products, idem)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpHandler.Routes(),
	}

	go func() {
		log.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Error("HTTP server error", "err", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel() // stops the sweeper

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Info("HTTP server stopped")

	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
	log.Info("connections closed")
}
