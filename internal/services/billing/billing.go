// Package billing реализует ежемесячный обход пользователей с активным
// тарифом и списание абонентской платы.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/exchange"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/sl"
	"github.com/magabrotheeeer/streaming-entitlements/internal/metrics"
	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
	"github.com/magabrotheeeer/streaming-entitlements/internal/notifier"
	"github.com/magabrotheeeer/streaming-entitlements/internal/paymentgateway"
	"github.com/magabrotheeeer/streaming-entitlements/internal/storage"
)

// PeriodOf возвращает расчётный период для момента времени, формат "2006-01".
func PeriodOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Repository определяет методы хранилища, нужные обходу списаний.
type Repository interface {
	WithUserTx(ctx context.Context, userUID string, fn func(tx storage.DBTX) error) error
	GetUserByUID(ctx context.Context, db storage.DBTX, userUID string) (*models.User, error)
	GetTier(ctx context.Context, db storage.DBTX, tierID int) (*models.Tier, error)
	InsertPayment(ctx context.Context, db storage.DBTX, payment models.Payment) (int, error)
	SetLastBilledPeriod(ctx context.Context, db storage.DBTX, userUID, period string) error
	ListBillableUsers(ctx context.Context, period string) ([]*models.User, error)
}

// Notifier отправляет уведомления об исходе списания.
type Notifier interface {
	SendReceipt(note notifier.ReceiptNote)
	SendPaymentFailed(note notifier.PaymentFailedNote)
}

// FailureHandler вызывается после неуспешного списания.
type FailureHandler interface {
	HandlePaymentFailure(ctx context.Context, user *models.User, tier *models.Tier) error
}

// NoopFailureHandler ничего не предпринимает: пользователь сохраняет тариф,
// попытка повторится при следующем обходе. Блокировок и пеней нет.
type NoopFailureHandler struct{}

// HandlePaymentFailure реализует FailureHandler.
func (NoopFailureHandler) HandlePaymentFailure(context.Context, *models.User, *models.Tier) error {
	return nil
}

// SweepSummary итог обхода списаний.
type SweepSummary struct {
	Charged int `json:"charged"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Service реализует ежемесячный обход списаний.
type Service struct {
	repo      Repository
	gateway   paymentgateway.Client
	rates     *exchange.Rates
	notifier  Notifier
	onFailure FailureHandler
	log       *slog.Logger
}

// New создает новый Service. Нулевой onFailure заменяется на NoopFailureHandler.
func New(repo Repository, gateway paymentgateway.Client, rates *exchange.Rates,
	n Notifier, onFailure FailureHandler, log *slog.Logger) *Service {
	if onFailure == nil {
		onFailure = NoopFailureHandler{}
	}
	return &Service{repo: repo, gateway: gateway, rates: rates,
		notifier: n, onFailure: onFailure, log: log}
}

// RunSweep списывает абонентскую плату за период period со всех пользователей
// с активным тарифом, ещё не оплативших этот период.
//
// Обход безопасен к повторному запуску: успешное списание ставит пользователю
// отметку периода, и выборка его больше не возвращает. Ошибка по одному
// пользователю не прерывает обход остальных.
func (s *Service) RunSweep(ctx context.Context, period string) (*SweepSummary, error) {
	const op = "billing.RunSweep"

	users, err := s.repo.ListBillableUsers(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	summary := &SweepSummary{}
	for _, u := range users {
		select {
		case <-ctx.Done():
			return summary, fmt.Errorf("%s: %w", op, ctx.Err())
		default:
		}

		outcome, err := s.billUser(ctx, u, period)
		switch {
		case err == nil:
			summary.Charged++
		case errors.Is(err, errAlreadyBilled):
			summary.Skipped++
		case errors.Is(err, paymentgateway.ErrDeclined):
			summary.Failed++
		default:
			summary.Failed++
			s.log.Error("billing user failed", slog.String("user_uid", u.UID), sl.Err(err))
		}
		metrics.BillingOutcomes.WithLabelValues(outcome).Inc()
	}

	s.log.Info("billing sweep finished", slog.String("period", period),
		slog.Int("charged", summary.Charged), slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped))
	return summary, nil
}

// errAlreadyBilled помечает пользователя, которого выборка захватила,
// но параллельный запуск успел оплатить.
var errAlreadyBilled = errors.New("period already billed")

func (s *Service) billUser(ctx context.Context, listed *models.User, period string) (string, error) {
	now := time.Now().UTC()
	var user *models.User
	var tier *models.Tier

	err := s.repo.WithUserTx(ctx, listed.UID, func(tx storage.DBTX) error {
		var err error
		// Состояние перечитывается под блокировкой: между выборкой и этим
		// моментом пользователь мог отменить тариф или быть оплачен.
		user, err = s.repo.GetUserByUID(ctx, tx, listed.UID)
		if err != nil {
			return err
		}
		if user.CurrentTierID == nil {
			return errAlreadyBilled
		}
		if user.LastBilledPeriod != nil && *user.LastBilledPeriod == period {
			return errAlreadyBilled
		}

		tier, err = s.repo.GetTier(ctx, tx, *user.CurrentTierID)
		if err != nil {
			return err
		}

		rate, err := s.rates.Rate(s.rates.Base(), user.CurrencyCode)
		if err != nil {
			return err
		}
		localAmount := tier.MonthlyFee.Mul(rate).Round(2)

		if err := s.gateway.Charge(ctx, paymentgateway.ChargeRequest{
			UserUID:   user.UID,
			TierID:    tier.ID,
			Amount:    localAmount,
			Currency:  user.CurrencyCode,
			CardLast4: user.CardLast4,
		}); err != nil {
			return err
		}

		if _, err := s.repo.InsertPayment(ctx, tx, models.Payment{
			UserUID:         user.UID,
			TierID:          tier.ID,
			Amount:          tier.MonthlyFee,
			ExchangeRate:    rate,
			CurrencyCode:    user.CurrencyCode,
			CardLast4:       user.CardLast4,
			TransactionDate: now,
		}); err != nil {
			return err
		}
		return s.repo.SetLastBilledPeriod(ctx, tx, user.UID, period)
	})

	switch {
	case err == nil:
		s.notifier.SendReceipt(notifier.ReceiptNote{
			Email:    user.Email,
			Username: user.Username,
			TierName: tier.Name,
			Amount:   tier.MonthlyFee,
			Currency: s.rates.Base(),
			PaidAt:   now,
		})
		return "charged", nil
	case errors.Is(err, errAlreadyBilled):
		return "skipped", err
	case errors.Is(err, paymentgateway.ErrDeclined):
		s.log.Warn("monthly charge declined", slog.String("user_uid", listed.UID), sl.Err(err))
		tierName := ""
		if tier != nil {
			tierName = tier.Name
		}
		s.notifier.SendPaymentFailed(notifier.PaymentFailedNote{
			Email:    listed.Email,
			Username: listed.Username,
			TierName: tierName,
			FailedAt: now,
		})
		if hErr := s.onFailure.HandlePaymentFailure(ctx, listed, tier); hErr != nil {
			s.log.Error("payment failure handler", slog.String("user_uid", listed.UID), sl.Err(hErr))
		}
		return "failed", err
	default:
		return "failed", err
	}
}
