// Package list реализует HTTP-обработчик просмотра устройств пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/streaming-entitlements/internal/api/middlewarectx"
	"github.com/magabrotheeeer/streaming-entitlements/internal/api/response"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/sl"
	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
)

// Handler обрабатывает HTTP-запросы просмотра устройств.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service определяет методы реестра устройств.
type Service interface {
	ListDevices(ctx context.Context, userUID string) ([]*models.Device, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список устройств пользователя
// @Description Возвращает устройства пользователя, свежие по last_login первыми
// @Tags Devices
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Список устройств"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /devices [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.device.list"

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

	devices, err := h.service.ListDevices(r.Context(), userUID)
	if err != nil {
		log.Error("failed to list devices", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list devices"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"devices": devices,
		"count":   len(devices),
	}))
}
