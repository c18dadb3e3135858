package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/bhargavryzer/Ownmali-sub000/internal/app"
	"github.com/bhargavryzer/Ownmali-sub000/internal/cache"
	"github.com/bhargavryzer/Ownmali-sub000/internal/compliance"
	"github.com/bhargavryzer/Ownmali-sub000/internal/config"
	"github.com/bhargavryzer/Ownmali-sub000/internal/storage/postgres"
	transporthttp "github.com/bhargavryzer/Ownmali-sub000/internal/transport/http"
	"github.com/bhargavryzer/Ownmali-sub000/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()
	if err := godotenv.Load(); err != nil {
		logger.Printf("WARN: no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	var orderCache app.OrderCache
	if cfg.RedisAddr != "" {
		client := cache.NewClient(cfg.RedisAddr, "", 0)
		if err := client.Ping(startupCtx).Err(); err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		defer client.Close()
		orderCache = cache.NewOrderCache(client, 0)
		logger.Printf("order cache enabled addr=%s", cfg.RedisAddr)
	}

	platformRepo := postgres.NewPlatformRepository(pool)
	engine, err := app.NewEngine(app.Config{
		OrderPolicy:       app.OrderPolicy(cfg.OrderCreationPolicy),
		MaxBatchSize:      cfg.MaxBatchSize,
		MetadataThreshold: cfg.MetadataThreshold,
	}, app.Deps{
		Orders: postgres.NewOrderRepository(pool),
		Tokens: postgres.NewTokenRepository(pool),
		Escrow: postgres.NewEscrowRepository(pool),
		Admin:  postgres.NewAdminRepository(pool),
		Roles:  platformRepo,
		Gate:   compliance.NewRegistryGate(platformRepo),
		Cache:  orderCache,
	})
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}
	if err := engine.Admin.Bootstrap(startupCtx, cfg.BootstrapAdmin); err != nil {
		log.Fatalf("bootstrap admin %q: %v", cfg.BootstrapAdmin, err)
	}

	handler := transporthttp.NewRouter(engine, transporthttp.RouterConfig{
		JWTSecret:      []byte(cfg.JWTSecret),
		AllowedOrigins: cfg.CORSOrigins,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	log.Printf("api listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}
