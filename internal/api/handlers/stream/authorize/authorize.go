// Package authorize реализует HTTP-обработчик допуска к воспроизведению.
//
// Запрос проходит через DeviceMiddleware, поэтому сюда попадают только
// обращения с зарегистрированного устройства. Обработчик дополняет ответ
// правами текущего тарифа.
package authorize

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/streaming-entitlements/internal/api/middlewarectx"
	"github.com/magabrotheeeer/streaming-entitlements/internal/api/response"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/sl"
	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
)

// Handler обрабатывает HTTP-запросы допуска к воспроизведению.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service определяет методы бизнес-логики подписок.
type Service interface {
	CurrentPlan(ctx context.Context, userUID string) (*models.Tier, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Допуск к воспроизведению
// @Description Подтверждает доступ устройства к ресурсу и возвращает права тарифа
// @Tags Stream
// @Produce  json
// @Security BearerAuth
// @Param X-Device-Token header string true "Токен устройства"
// @Param asset_id path string true "Идентификатор ресурса"
// @Success 200 {object} map[string]any "Доступ разрешён"
// @Failure 401 {object} response.ErrorResponse "Устройство не распознано"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /stream/{asset_id}/authorize [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stream.authorize"

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
	deviceID, _ := r.Context().Value(middlewarectx.DeviceID).(int)
	assetID := chi.URLParam(r, "asset_id")

	tier, err := h.service.CurrentPlan(r.Context(), userUID)
	if err != nil {
		log.Error("failed to read current plan", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to authorize playback"))
		return
	}
	if tier == nil {
		tier = models.DefaultEntitlement()
	}

	log.Info("playback authorized", slog.String("asset_id", assetID),
		slog.Int("device_id", deviceID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"asset_id":     assetID,
		"device_id":    deviceID,
		"tier":         tier.Name,
		"can_download": tier.CanDownload,
	}))
}
