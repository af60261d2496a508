// Package request реализует HTTP-обработчик приёма заявки на отмену подписки.
package request

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/streaming-entitlements/internal/api/middlewarectx"
	"github.com/magabrotheeeer/streaming-entitlements/internal/api/response"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/sl"
	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
)

// Handler обрабатывает HTTP-запросы на отмену подписки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service определяет методы планировщика отмен.
type Service interface {
	RequestCancellation(ctx context.Context, userUID string, effectiveDate time.Time) (*models.CancellationRequest, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Заявка на отмену подписки
// @Description Создает отложенную заявку, права сохраняются до даты вступления в силу
// @Tags Cancellations
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyCancellation true "Дата вступления отмены в силу"
// @Success 200 {object} map[string]any "Заявка принята"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации данных"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /cancellation [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cancellation.request"

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

	var req models.DummyCancellation
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	effectiveDate, err := time.Parse("2006-01-02", req.EffectiveDate)
	if err != nil {
		log.Error("invalid effective date", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid effective date"))
		return
	}

	created, err := h.service.RequestCancellation(r.Context(), userUID, effectiveDate)
	if err != nil {
		log.Error("failed to create cancellation request", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to create cancellation request"))
		return
	}

	log.Info("cancellation requested", slog.Int("request_id", created.ID),
		slog.Time("effective_date", created.EffectiveDate))
	render.JSON(w, r, response.OKWithData(created))
}
