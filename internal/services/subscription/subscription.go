// Package subscription реализует жизненный цикл подписки: просмотр каталога
// тарифов, смену тарифа с немедленным списанием и историю платежей.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/exchange"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/sl"
	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
	"github.com/magabrotheeeer/streaming-entitlements/internal/paymentgateway"
	"github.com/magabrotheeeer/streaming-entitlements/internal/storage"
)

const (
	tiersCacheKey = "tiers:catalog"
	tiersCacheTTL = time.Hour
)

// Repository определяет методы хранилища, нужные сервису подписок.
type Repository interface {
	WithUserTx(ctx context.Context, userUID string, fn func(tx storage.DBTX) error) error
	GetUserByUID(ctx context.Context, db storage.DBTX, userUID string) (*models.User, error)
	GetTier(ctx context.Context, db storage.DBTX, tierID int) (*models.Tier, error)
	GetTierForUser(ctx context.Context, db storage.DBTX, userUID string) (*models.Tier, error)
	UpdateUserTier(ctx context.Context, db storage.DBTX, userUID string, tierID int) error
	InsertPayment(ctx context.Context, db storage.DBTX, payment models.Payment) (int, error)
	ListTiers(ctx context.Context) ([]*models.Tier, error)
	ListUserPayments(ctx context.Context, userUID string, limit, offset int) ([]*models.Payment, error)
	CountUserPayments(ctx context.Context, userUID string) (int, error)
}

// TiersCache кеширует каталог тарифов. Каталог неизменяем, поэтому
// инвалидация не нужна, достаточно TTL.
type TiersCache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
}

// ChangeResult описывает исход смены тарифа.
type ChangeResult struct {
	TierID   int             `json:"tier_id"`
	TierName string          `json:"tier_name"`
	Charged  decimal.Decimal `json:"charged"`
	Currency string          `json:"currency"`
}

// Service реализует бизнес-логику подписок.
type Service struct {
	repo    Repository
	gateway paymentgateway.Client
	rates   *exchange.Rates
	cache   TiersCache
	log     *slog.Logger
}

// New создает новый Service. Кеш опционален, nil отключает кеширование.
func New(repo Repository, gateway paymentgateway.Client, rates *exchange.Rates,
	cache TiersCache, log *slog.Logger) *Service {
	return &Service{repo: repo, gateway: gateway, rates: rates, cache: cache, log: log}
}

// ListTiers возвращает каталог тарифов, по возможности из кеша.
func (s *Service) ListTiers(ctx context.Context) ([]*models.Tier, error) {
	if s.cache != nil {
		var cached []*models.Tier
		found, err := s.cache.Get(tiersCacheKey, &cached)
		if err != nil {
			s.log.Warn("tiers cache read failed", sl.Err(err))
		}
		if found {
			return cached, nil
		}
	}

	tiers, err := s.repo.ListTiers(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(tiersCacheKey, tiers, tiersCacheTTL); err != nil {
			s.log.Warn("tiers cache write failed", sl.Err(err))
		}
	}
	return tiers, nil
}

// CurrentPlan возвращает активный тариф пользователя или nil, если его нет.
func (s *Service) CurrentPlan(ctx context.Context, userUID string) (*models.Tier, error) {
	return s.repo.GetTierForUser(ctx, nil, userUID)
}

// ChangePlan переводит пользователя на тариф tierID.
//
// Сумма списания считается по ChargeForChange. Если она положительна,
// сначала проводится платёж и записывается строка в платёжную книгу, и
// только затем меняется тариф. Отклонённый платёж прерывает транзакцию,
// тариф пользователя остаётся прежним.
func (s *Service) ChangePlan(ctx context.Context, userUID string, tierID int) (*ChangeResult, error) {
	const op = "subscription.ChangePlan"
	now := time.Now().UTC()
	var res ChangeResult

	err := s.repo.WithUserTx(ctx, userUID, func(tx storage.DBTX) error {
		user, err := s.repo.GetUserByUID(ctx, tx, userUID)
		if err != nil {
			return err
		}
		next, err := s.repo.GetTier(ctx, tx, tierID)
		if err != nil {
			return err
		}
		current, err := s.repo.GetTierForUser(ctx, tx, userUID)
		if err != nil {
			return err
		}

		amount := ChargeForChange(current, next)
		if amount.IsPositive() {
			rate, err := s.rates.Rate(s.rates.Base(), user.CurrencyCode)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			localAmount := amount.Mul(rate).Round(2)

			if err := s.gateway.Charge(ctx, paymentgateway.ChargeRequest{
				UserUID:   userUID,
				TierID:    next.ID,
				Amount:    localAmount,
				Currency:  user.CurrencyCode,
				CardLast4: user.CardLast4,
			}); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}

			if _, err := s.repo.InsertPayment(ctx, tx, models.Payment{
				UserUID:         userUID,
				TierID:          next.ID,
				Amount:          amount,
				ExchangeRate:    rate,
				CurrencyCode:    user.CurrencyCode,
				CardLast4:       user.CardLast4,
				TransactionDate: now,
			}); err != nil {
				return err
			}
		}

		if err := s.repo.UpdateUserTier(ctx, tx, userUID, next.ID); err != nil {
			return err
		}

		res = ChangeResult{
			TierID:   next.ID,
			TierName: next.Name,
			Charged:  amount,
			Currency: s.rates.Base(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("plan changed", slog.String("user_uid", userUID),
		slog.Int("tier_id", res.TierID), slog.String("charged", res.Charged.String()))
	return &res, nil
}

// ListPayments возвращает страницу истории платежей пользователя и общее
// число его платежей.
func (s *Service) ListPayments(ctx context.Context, userUID string, limit, offset int) ([]*models.Payment, int, error) {
	payments, err := s.repo.ListUserPayments(ctx, userUID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountUserPayments(ctx, userUID)
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}
