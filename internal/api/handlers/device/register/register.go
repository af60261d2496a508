// Package register реализует HTTP-обработчик регистрации устройства.
//
// Обработчик передает токен и имя устройства в реестр, который применяет
// лимит тарифа, период охлаждения и вытеснение наименее активного устройства.
package register

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
	"github.com/magabrotheeeer/streaming-entitlements/internal/services/device"
)

// Handler обрабатывает HTTP-запросы регистрации устройств.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service определяет методы реестра устройств.
type Service interface {
	RegisterDevice(ctx context.Context, userUID, token, name string) (*device.RegisterResult, error)
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
// @Summary Регистрация устройства
// @Description Допускает устройство пользователя с учётом лимита тарифа и периода охлаждения
// @Tags Devices
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyRegisterDevice true "Токен и имя устройства"
// @Success 200 {object} map[string]any "Устройство допущено"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 409 {object} response.ErrorResponse "Действует период охлаждения"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации данных"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /devices [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.device.register"

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

	var req models.DummyRegisterDevice
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

	res, err := h.service.RegisterDevice(r.Context(), userUID, req.DeviceToken, req.DeviceName)
	if err != nil {
		var cdErr *device.CooldownError
		if errors.As(err, &cdErr) {
			log.Warn("registration rejected by cooldown",
				slog.Int("days_remaining", cdErr.DaysRemaining))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(cdErr.Error()))
			return
		}
		log.Error("failed to register device", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to register device"))
		return
	}

	log.Info("device admitted", slog.Int("device_id", res.DeviceID),
		slog.String("result", res.Message))
	render.JSON(w, r, response.OKWithData(res))
}
