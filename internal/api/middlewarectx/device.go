package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/streaming-entitlements/internal/api/response"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/sl"
	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
	"github.com/magabrotheeeer/streaming-entitlements/internal/services/device"
)

// DeviceService проверяет токен устройства пользователя.
type DeviceService interface {
	ValidateAccess(ctx context.Context, userUID, token string) (*models.Device, error)
}

// DeviceMiddleware создает middleware, пропускающий запрос только с
// зарегистрированного устройства. Токен берётся из заголовка X-Device-Token,
// успешная проверка обновляет last_login устройства.
func DeviceMiddleware(log *slog.Logger, deviceService DeviceService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userUID, ok := r.Context().Value(UserUID).(string)
			if !ok || userUID == "" {
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			token := r.Header.Get("X-Device-Token")
			if token == "" {
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing device token"))
				return
			}

			d, err := deviceService.ValidateAccess(r.Context(), userUID, token)
			if err != nil {
				if errors.Is(err, device.ErrNotRecognized) {
					w.WriteHeader(http.StatusUnauthorized)
					render.JSON(w, r, response.Error(device.ErrNotRecognized.Error()))
					return
				}
				log.Error("device validation failed", sl.Err(err))
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}

			ctx := context.WithValue(r.Context(), DeviceID, d.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
