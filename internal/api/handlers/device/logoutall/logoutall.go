// Package logoutall реализует HTTP-обработчик выхода со всех устройств.
package logoutall

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/streaming-entitlements/internal/api/middlewarectx"
	"github.com/magabrotheeeer/streaming-entitlements/internal/api/response"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/sl"
)

// Handler обрабатывает HTTP-запросы выхода со всех устройств.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service определяет методы реестра устройств.
type Service interface {
	ForceLogoutAll(ctx context.Context, userUID string) (int, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Выйти на всех устройствах
// @Description Удаляет все устройства пользователя
// @Tags Devices
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Число удалённых устройств"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /devices/logout-all [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.device.logoutall"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	count, err := h.service.ForceLogoutAll(r.Context(), userUID)
	if err != nil {
		log.Error("failed to logout all devices", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to logout all devices"))
		return
	}

	log.Info("logged out everywhere", slog.Int("count", count))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"deleted_count": count,
	}))
}
