// Package cancellation реализует отложенную отмену подписки: приём заявки
// с будущей датой и ежедневный обход, применяющий наступившие заявки.
package cancellation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/sl"
	"github.com/magabrotheeeer/streaming-entitlements/internal/metrics"
	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
	"github.com/magabrotheeeer/streaming-entitlements/internal/notifier"
	"github.com/magabrotheeeer/streaming-entitlements/internal/storage"
)

// Repository определяет методы хранилища, нужные планировщику отмен.
type Repository interface {
	WithUserTx(ctx context.Context, userUID string, fn func(tx storage.DBTX) error) error
	GetUserByUID(ctx context.Context, db storage.DBTX, userUID string) (*models.User, error)
	CreateCancellationRequest(ctx context.Context, req models.CancellationRequest) (int, error)
	LatestPendingRequest(ctx context.Context, userUID string) (*models.CancellationRequest, error)
	ListDueRequests(ctx context.Context, asOf time.Time) ([]*models.CancellationRequest, error)
	MarkRequestProcessed(ctx context.Context, db storage.DBTX, requestID int) error
	ClearUserTier(ctx context.Context, db storage.DBTX, userUID string) error
	DeleteAllUserDevices(ctx context.Context, db storage.DBTX, userUID string) (int, error)
}

// Notifier отправляет подтверждение отмены.
type Notifier interface {
	SendCancellation(note notifier.CancellationNote)
}

// noopNotifier используется, когда уведомления не настроены: HTTP-приложению
// нужны только приём и чтение заявок, обход с уведомлениями живёт в планировщике.
type noopNotifier struct{}

func (noopNotifier) SendCancellation(notifier.CancellationNote) {}

// SweepSummary итог ежедневного обхода отмен.
type SweepSummary struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Service реализует планировщик отмен.
type Service struct {
	repo     Repository
	notifier Notifier
	log      *slog.Logger
}

// New создает новый Service. Нулевой n заменяется на заглушку без уведомлений.
func New(repo Repository, n Notifier, log *slog.Logger) *Service {
	if n == nil {
		n = noopNotifier{}
	}
	return &Service{repo: repo, notifier: n, log: log}
}

// RequestCancellation принимает заявку на отмену с датой вступления в силу.
// Права пользователя не меняются до наступления даты. Повторные заявки
// создают новые строки, авторитетна всегда самая свежая.
func (s *Service) RequestCancellation(ctx context.Context, userUID string, effectiveDate time.Time) (*models.CancellationRequest, error) {
	req := models.CancellationRequest{
		UserUID:       userUID,
		RequestedAt:   time.Now().UTC(),
		EffectiveDate: effectiveDate,
	}
	id, err := s.repo.CreateCancellationRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	req.ID = id

	s.log.Info("cancellation requested", slog.String("user_uid", userUID),
		slog.Time("effective_date", effectiveDate))
	return &req, nil
}

// PendingRequest возвращает текущую необработанную заявку пользователя
// или nil, если заявок нет.
func (s *Service) PendingRequest(ctx context.Context, userUID string) (*models.CancellationRequest, error) {
	return s.repo.LatestPendingRequest(ctx, userUID)
}

// RunSweep применяет все заявки, чья дата вступления в силу наступила.
//
// Для каждой заявки снятие тарифа, удаление всех устройств и отметка
// processed выполняются в одной транзакции под блокировкой пользователя:
// частичное применение невозможно, а регистрация устройства, бегущая
// наперегонки с отменой, не оставит устройство у пользователя без тарифа.
// Ошибка по одной заявке не прерывает обход остальных.
func (s *Service) RunSweep(ctx context.Context, now time.Time) (*SweepSummary, error) {
	const op = "cancellation.RunSweep"

	due, err := s.repo.ListDueRequests(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	summary := &SweepSummary{}
	for _, req := range due {
		select {
		case <-ctx.Done():
			return summary, fmt.Errorf("%s: %w", op, ctx.Err())
		default:
		}

		if err := s.applyRequest(ctx, req, now); err != nil {
			summary.Failed++
			s.log.Error("applying cancellation failed",
				slog.Int("request_id", req.ID), slog.String("user_uid", req.UserUID), sl.Err(err))
			continue
		}
		summary.Processed++
		metrics.CancellationsProcessed.Inc()
	}

	s.log.Info("cancellation sweep finished",
		slog.Int("processed", summary.Processed), slog.Int("failed", summary.Failed))
	return summary, nil
}

func (s *Service) applyRequest(ctx context.Context, req *models.CancellationRequest, now time.Time) error {
	var user *models.User
	err := s.repo.WithUserTx(ctx, req.UserUID, func(tx storage.DBTX) error {
		var err error
		user, err = s.repo.GetUserByUID(ctx, tx, req.UserUID)
		if err != nil {
			return err
		}
		if err := s.repo.ClearUserTier(ctx, tx, req.UserUID); err != nil {
			return err
		}
		if _, err := s.repo.DeleteAllUserDevices(ctx, tx, req.UserUID); err != nil {
			return err
		}
		return s.repo.MarkRequestProcessed(ctx, tx, req.ID)
	})
	if err != nil {
		return err
	}

	s.notifier.SendCancellation(notifier.CancellationNote{
		Email:       user.Email,
		Username:    user.Username,
		CancelledAt: now,
	})
	return nil
}
