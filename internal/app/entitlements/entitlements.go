// Package entitlements собирает HTTP-приложение ядра: хранилище, кеш,
// миграции, сервисы и маршруты.
package entitlements

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/streaming-entitlements/internal/cache"
	"github.com/magabrotheeeer/streaming-entitlements/internal/config"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/exchange"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/jwt"
	"github.com/magabrotheeeer/streaming-entitlements/internal/migrations"
	"github.com/magabrotheeeer/streaming-entitlements/internal/paymentgateway"
	authservice "github.com/magabrotheeeer/streaming-entitlements/internal/services/auth"
	cancellationservice "github.com/magabrotheeeer/streaming-entitlements/internal/services/cancellation"
	deviceservice "github.com/magabrotheeeer/streaming-entitlements/internal/services/device"
	subscriptionservice "github.com/magabrotheeeer/streaming-entitlements/internal/services/subscription"
	"github.com/magabrotheeeer/streaming-entitlements/internal/storage"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	gateway := paymentgateway.NewSimulator()
	rates := exchange.DefaultRates()

	authService := authservice.New(db, jwtMaker)
	deviceService := deviceservice.New(db, logger)
	subscriptionService := subscriptionservice.New(db, gateway, rates, cacheRedis, logger)
	cancellationService := cancellationservice.New(db, nil, logger)

	router := chi.NewRouter()

	RegisterRoutes(router, logger, db,
		authService, deviceService, subscriptionService, cancellationService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.db.DB.Close()
		_ = a.cache.Db.Close()
		return err
	}
}
