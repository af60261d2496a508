// Package pending реализует HTTP-обработчик просмотра текущей заявки на отмену.
package pending

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

// Handler обрабатывает HTTP-запросы просмотра заявки на отмену.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service определяет методы планировщика отмен.
type Service interface {
	PendingRequest(ctx context.Context, userUID string) (*models.CancellationRequest, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Текущая заявка на отмену
// @Description Возвращает последнюю необработанную заявку пользователя, null если её нет
// @Tags Cancellations
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Текущая заявка"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /cancellation [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cancellation.pending"

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

	req, err := h.service.PendingRequest(r.Context(), userUID)
	if err != nil {
		log.Error("failed to read pending request", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to read pending request"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"request": req,
	}))
}
