// Package change реализует HTTP-обработчик смены тарифа.
//
// При повышении тарифа списывается разница месячных плат, при понижении
// списания нет. Отклонённый платёж оставляет прежний тариф.
package change

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/streaming-entitlements/internal/api/middlewarectx"
	"github.com/magabrotheeeer/streaming-entitlements/internal/api/response"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/sl"
	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
	"github.com/magabrotheeeer/streaming-entitlements/internal/paymentgateway"
	"github.com/magabrotheeeer/streaming-entitlements/internal/services/subscription"
	"github.com/magabrotheeeer/streaming-entitlements/internal/storage"
)

// Handler обрабатывает HTTP-запросы смены тарифа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service определяет методы бизнес-логики подписок.
type Service interface {
	ChangePlan(ctx context.Context, userUID string, tierID int) (*subscription.ChangeResult, error)
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
// @Summary Смена тарифа
// @Description Переводит пользователя на указанный тариф с немедленным списанием при повышении
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyChangePlan true "Идентификатор нового тарифа"
// @Success 200 {object} map[string]any "Тариф изменён"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 402 {object} response.ErrorResponse "Платёж отклонён"
// @Failure 404 {object} response.ErrorResponse "Тариф не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации данных"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscription/change [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.change"

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

	var req models.DummyChangePlan
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

	res, err := h.service.ChangePlan(r.Context(), userUID, req.TierID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTierNotFound):
			log.Warn("tier not found", slog.Int("tier_id", req.TierID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("tier not found"))
		case errors.Is(err, paymentgateway.ErrDeclined):
			log.Warn("charge declined", sl.Err(err))
			w.WriteHeader(http.StatusPaymentRequired)
			render.JSON(w, r, response.Error("payment declined"))
		default:
			log.Error("failed to change plan", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to change plan"))
		}
		return
	}

	log.Info("plan changed", slog.Int("tier_id", res.TierID),
		slog.String("charged", res.Charged.String()))
	render.JSON(w, r, response.OKWithData(res))
}
