package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/go-complaints/auth"
	"github.com/diewo77/go-complaints/internal/blob"
	"github.com/diewo77/go-complaints/internal/config"
	"github.com/diewo77/go-complaints/internal/db"
	"github.com/diewo77/go-complaints/internal/gateway"
	"github.com/diewo77/go-complaints/internal/handlers"
	"github.com/diewo77/go-complaints/internal/identity"
	"github.com/diewo77/go-complaints/internal/logging"
	"github.com/diewo77/go-complaints/internal/metrics"
	"github.com/diewo77/go-complaints/internal/policy"
	"github.com/diewo77/go-complaints/internal/store"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.App.LogLevel, cfg.App.Dev)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	dbConn, err := db.Open(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	if *migrateOnlyFlag || cfg.App.Migrations || cfg.Database.Driver == "sqlite" {
		if err := db.Migrate(dbConn, cfg.Database.URL(), cfg.App.Migrations, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations completed")
	}
	if *migrateOnlyFlag {
		return nil
	}

	bucket, err := blob.Open(context.Background(), cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open bucket: %w", err)
	}

	authz := policy.NewAuthorizer(dbConn, cfg.App.RoleCacheTTL(), logger)
	st := store.New(dbConn, authz, logger)
	ids := identity.New(dbConn, logger)
	m := metrics.New()
	gw := gateway.New(st, bucket, ids, m, logger)

	sessions := auth.NewManager(cfg.Session.Secret, cfg.Session.TTL())
	sessions.SetSecureCookies(cfg.Session.SecureCookie)
	sessions.SetVerifier(ids.Verify)

	app := NewApp(dbConn, handlers.NewRouterConfig(gw, sessions, logger), m, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go pruneRevokedTokens(ctx, ids, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.Bool("dev", cfg.App.Dev),
			zap.String("db", cfg.Database.Driver),
			zap.String("storage", cfg.Storage.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

// pruneRevokedTokens drops expired revocations once an hour.
func pruneRevokedTokens(ctx context.Context, ids *identity.Service, logger *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := ids.PruneRevoked(ctx)
			if err != nil {
				logger.Warn("prune revoked tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("pruned revoked tokens", zap.Int64("count", n))
			}
		}
	}
}
