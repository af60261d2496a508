// Package list реализует HTTP-обработчик просмотра каталога тарифов.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/streaming-entitlements/internal/api/response"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/sl"
	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
)

// Handler обрабатывает HTTP-запросы каталога тарифов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service определяет методы бизнес-логики подписок.
type Service interface {
	ListTiers(ctx context.Context) ([]*models.Tier, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Каталог тарифов
// @Description Возвращает все тарифы в порядке возрастания ранга
// @Tags Tiers
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Список тарифов"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /tiers [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tier.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	tiers, err := h.service.ListTiers(r.Context())
	if err != nil {
		log.Error("failed to list tiers", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list tiers"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"tiers": tiers,
	}))
}
