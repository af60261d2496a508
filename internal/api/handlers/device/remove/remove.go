// Package remove реализует HTTP-обработчик удаления устройства пользователя.
package remove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/streaming-entitlements/internal/api/middlewarectx"
	"github.com/magabrotheeeer/streaming-entitlements/internal/api/response"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/sl"
	"github.com/magabrotheeeer/streaming-entitlements/internal/services/device"
)

// Handler обрабатывает HTTP-запросы удаления устройства.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service определяет методы реестра устройств.
type Service interface {
	RemoveDevice(ctx context.Context, deviceID int, userUID string) error
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить устройство
// @Description Удаляет устройство пользователя по идентификатору с проверкой владения
// @Tags Devices
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID устройства"
// @Success 200 {object} map[string]any "Устройство удалено"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 404 {object} response.ErrorResponse "Устройство не найдено или чужое"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /devices/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.device.remove"

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

	idStr := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		log.Error("invalid id format", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return
	}

	if err := h.service.RemoveDevice(r.Context(), id, userUID); err != nil {
		if errors.Is(err, device.ErrNotFoundOrDenied) {
			log.Warn("device not found or access denied", slog.Int("device_id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("device not found or access denied"))
			return
		}
		log.Error("failed to remove device", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to remove device"))
		return
	}

	log.Info("device removed", slog.Int("device_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"deleted_id": id,
	}))
}
