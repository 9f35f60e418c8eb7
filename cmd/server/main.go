package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"tokoagen/backend/internal/access"
	"tokoagen/backend/internal/auth"
	"tokoagen/backend/internal/cache"
	"tokoagen/backend/internal/config"
	"tokoagen/backend/internal/httpapi"
	"tokoagen/backend/internal/logging"
	"tokoagen/backend/internal/service"
	"tokoagen/backend/internal/store"
	"tokoagen/backend/internal/store/memory"
	pgstore "tokoagen/backend/internal/store/postgres"
)

// roleAndTokenCache is what the process needs from a cache backend.
type roleAndTokenCache interface {
	cache.RoleCache
	cache.Revocations
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg)

	loc, err := validateSecurityConfig(cfg)
	if err != nil {
		logger.Error("invalid security configuration", "error", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("postgres unavailable and DATABASE_URL is set, refusing to start with in-memory fallback", "error", err)
			os.Exit(1)
		}
		if cfg.DatabaseAutoMigrate {
			if err := pg.Migrate(ctx); err != nil {
				logger.Error("database migration failed", "error", err)
				os.Exit(1)
			}
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		logger.Info("repository: in-memory")
	}

	var sharedCache roleAndTokenCache = cache.NewMemoryCache()
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using in-process cache", "error", err)
			_ = redisCache.Close()
		} else {
			sharedCache = redisCache
			closers = append(closers, redisCache.Close)
			logger.Info("cache: redis")
		}
	} else {
		logger.Info("cache: in-process")
	}

	resolver := access.NewResolver(repo, sharedCache, cfg.RoleCacheTTL, logger)
	identity := auth.NewManager(cfg.AuthSecret, cfg.AccessTokenTTL, repo, resolver, sharedCache, logger)
	unsubscribe := identity.Subscribe(func(ev auth.Event) {
		logger.Info("identity changed", "kind", ev.Kind, "email", ev.Email, "reason", ev.Reason)
	})
	defer unsubscribe()

	svc := service.New(repo, service.Options{
		Identity:   identity,
		RoleCache:  sharedCache,
		Location:   loc,
		ShopName:   cfg.ShopName,
		AuditLimit: cfg.AuditLogLimit,
		Logger:     logger,
	})
	api := httpapi.New(svc, identity, cfg.AllowedOrigin, logger)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("backend listening", "addr", cfg.Address(), "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Warn("close error", "error", err)
		}
	}

	logger.Info("server stopped")
}

// validateSecurityConfig checks the settings the server must not run
// without and returns the shop's time zone.
func validateSecurityConfig(cfg config.Config) (*time.Location, error) {
	if len(cfg.AuthSecret) < 32 {
		return nil, fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.AllowedOrigin == "*" && cfg.DatabaseURL != "" {
		return nil, fmt.Errorf("ALLOWED_ORIGIN must name the frontend origin when running on postgres")
	}
	return cfg.Location()
}
