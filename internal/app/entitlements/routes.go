package entitlements

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/streaming-entitlements/internal/api/handlers/auth/login"
	"github.com/magabrotheeeer/streaming-entitlements/internal/api/handlers/auth/register"
	cancelpending "github.com/magabrotheeeer/streaming-entitlements/internal/api/handlers/cancellation/pending"
	cancelrequest "github.com/magabrotheeeer/streaming-entitlements/internal/api/handlers/cancellation/request"
	devicelist "github.com/magabrotheeeer/streaming-entitlements/internal/api/handlers/device/list"
	"github.com/magabrotheeeer/streaming-entitlements/internal/api/handlers/device/logoutall"
	deviceregister "github.com/magabrotheeeer/streaming-entitlements/internal/api/handlers/device/register"
	deviceremove "github.com/magabrotheeeer/streaming-entitlements/internal/api/handlers/device/remove"
	"github.com/magabrotheeeer/streaming-entitlements/internal/api/handlers/health"
	"github.com/magabrotheeeer/streaming-entitlements/internal/api/handlers/payment/paymentlist"
	"github.com/magabrotheeeer/streaming-entitlements/internal/api/handlers/stream/authorize"
	"github.com/magabrotheeeer/streaming-entitlements/internal/api/handlers/subscription/change"
	"github.com/magabrotheeeer/streaming-entitlements/internal/api/handlers/subscription/read"
	tierlist "github.com/magabrotheeeer/streaming-entitlements/internal/api/handlers/tier/list"
	"github.com/magabrotheeeer/streaming-entitlements/internal/api/middlewarectx"
	authservice "github.com/magabrotheeeer/streaming-entitlements/internal/services/auth"
	cancellationservice "github.com/magabrotheeeer/streaming-entitlements/internal/services/cancellation"
	deviceservice "github.com/magabrotheeeer/streaming-entitlements/internal/services/device"
	subscriptionservice "github.com/magabrotheeeer/streaming-entitlements/internal/services/subscription"
	"github.com/magabrotheeeer/streaming-entitlements/internal/storage"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, db *storage.Storage,
	authService *authservice.Service,
	deviceService *deviceservice.Service,
	subscriptionService *subscriptionservice.Service,
	cancellationService *cancellationservice.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(logger, authService))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/devices", deviceregister.New(logger, deviceService).ServeHTTP)
			r.Get("/devices", devicelist.New(logger, deviceService).ServeHTTP)
			r.Delete("/devices/{id}", deviceremove.New(logger, deviceService).ServeHTTP)
			r.Post("/devices/logout-all", logoutall.New(logger, deviceService).ServeHTTP)
			r.Get("/tiers", tierlist.New(logger, subscriptionService).ServeHTTP)
			r.Get("/subscription", read.New(logger, subscriptionService).ServeHTTP)
			r.Post("/subscription/change", change.New(logger, subscriptionService).ServeHTTP)
			r.Post("/cancellation", cancelrequest.New(logger, cancellationService).ServeHTTP)
			r.Get("/cancellation", cancelpending.New(logger, cancellationService).ServeHTTP)
			r.Get("/payments/list", paymentlist.New(logger, subscriptionService).ServeHTTP)

			// Авторизация потока требует опознанного устройства
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.DeviceMiddleware(logger, deviceService))
				r.Get("/stream/{asset_id}/authorize", authorize.New(logger, subscriptionService).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, db).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
