package billing

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/exchange"
	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
	"github.com/magabrotheeeer/streaming-entitlements/internal/notifier"
	"github.com/magabrotheeeer/streaming-entitlements/internal/paymentgateway"
	"github.com/magabrotheeeer/streaming-entitlements/internal/storage"
)

// fakeRepo — хранилище в памяти, реализующее Repository.
type fakeRepo struct {
	users    map[string]*models.User
	tiers    map[int]*models.Tier
	payments []models.Payment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users: make(map[string]*models.User),
		tiers: map[int]*models.Tier{
			1: {ID: 1, Name: "Basic", Rank: 1, MonthlyFee: decimal.RequireFromString("4.99")},
			3: {ID: 3, Name: "Premium", Rank: 3, MonthlyFee: decimal.RequireFromString("9.99")},
		},
	}
}

func (f *fakeRepo) addUser(uid, currency, card string, tierID *int, billed *string) {
	f.users[uid] = &models.User{
		UID: uid, Email: uid + "@example.com", Username: uid,
		CurrencyCode: currency, CardLast4: card,
		CurrentTierID: tierID, LastBilledPeriod: billed,
	}
}

func (f *fakeRepo) WithUserTx(_ context.Context, userUID string, fn func(tx storage.DBTX) error) error {
	saved := *f.users[userUID]
	savedPayments := make([]models.Payment, len(f.payments))
	copy(savedPayments, f.payments)
	if err := fn(nil); err != nil {
		restored := saved
		f.users[userUID] = &restored
		f.payments = savedPayments
		return err
	}
	return nil
}

func (f *fakeRepo) GetUserByUID(_ context.Context, _ storage.DBTX, userUID string) (*models.User, error) {
	u, ok := f.users[userUID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeRepo) GetTier(_ context.Context, _ storage.DBTX, tierID int) (*models.Tier, error) {
	t, ok := f.tiers[tierID]
	if !ok {
		return nil, storage.ErrTierNotFound
	}
	return t, nil
}

func (f *fakeRepo) InsertPayment(_ context.Context, _ storage.DBTX, payment models.Payment) (int, error) {
	payment.ID = len(f.payments) + 1
	f.payments = append(f.payments, payment)
	return payment.ID, nil
}

func (f *fakeRepo) SetLastBilledPeriod(_ context.Context, _ storage.DBTX, userUID, period string) error {
	p := period
	f.users[userUID].LastBilledPeriod = &p
	return nil
}

func (f *fakeRepo) ListBillableUsers(_ context.Context, period string) ([]*models.User, error) {
	var result []*models.User
	for _, u := range f.users {
		if u.CurrentTierID == nil {
			continue
		}
		if u.LastBilledPeriod != nil && *u.LastBilledPeriod == period {
			continue
		}
		result = append(result, u)
	}
	return result, nil
}

// fakeNotifier — накапливает отправленные уведомления.
type fakeNotifier struct {
	receipts []notifier.ReceiptNote
	failures []notifier.PaymentFailedNote
}

func (n *fakeNotifier) SendReceipt(note notifier.ReceiptNote) {
	n.receipts = append(n.receipts, note)
}

func (n *fakeNotifier) SendPaymentFailed(note notifier.PaymentFailedNote) {
	n.failures = append(n.failures, note)
}

func newTestService(repo Repository, n Notifier) *Service {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(repo, paymentgateway.NewSimulator(), exchange.DefaultRates(), n, nil, logger)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestRunSweep_ChargesActiveUsers(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("user-1", "EUR", "4242", intPtr(3), nil)
	repo.addUser("user-2", "USD", "1111", intPtr(1), nil)
	repo.addUser("user-3", "USD", "1111", nil, nil) // без тарифа, не трогается
	notes := &fakeNotifier{}
	svc := newTestService(repo, notes)

	summary, err := svc.RunSweep(context.Background(), "2025-06")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Charged)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.Skipped)

	require.Len(t, repo.payments, 2)
	assert.Len(t, notes.receipts, 2)

	require.NotNil(t, repo.users["user-1"].LastBilledPeriod)
	assert.Equal(t, "2025-06", *repo.users["user-1"].LastBilledPeriod)
	assert.Nil(t, repo.users["user-3"].LastBilledPeriod)
}

func TestRunSweep_RerunIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("user-1", "USD", "4242", intPtr(3), nil)
	notes := &fakeNotifier{}
	svc := newTestService(repo, notes)
	ctx := context.Background()

	summary, err := svc.RunSweep(ctx, "2025-06")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Charged)

	// Повторный запуск того же периода никого не списывает.
	summary, err = svc.RunSweep(ctx, "2025-06")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Charged)
	assert.Len(t, repo.payments, 1)
	assert.Len(t, notes.receipts, 1)

	// Следующий период списывается заново.
	summary, err = svc.RunSweep(ctx, "2025-07")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Charged)
	assert.Len(t, repo.payments, 2)
}

func TestRunSweep_DeclinedCharge(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("user-1", "USD", paymentgateway.DeclineCard, intPtr(3), nil)
	notes := &fakeNotifier{}
	svc := newTestService(repo, notes)

	summary, err := svc.RunSweep(context.Background(), "2025-06")
	require.NoError(t, err, "отказ по одному пользователю не валит обход")
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Charged)

	assert.Empty(t, repo.payments, "неуспешное списание не попадает в книгу")
	require.Len(t, notes.failures, 1)
	assert.Equal(t, "Premium", notes.failures[0].TierName)

	// Тариф и отметка не тронуты: следующий обход попробует снова.
	assert.Equal(t, 3, *repo.users["user-1"].CurrentTierID)
	assert.Nil(t, repo.users["user-1"].LastBilledPeriod)
}

func TestRunSweep_FailureDoesNotStopOthers(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("user-1", "USD", paymentgateway.DeclineCard, intPtr(1), nil)
	repo.addUser("user-2", "USD", "4242", intPtr(1), nil)
	notes := &fakeNotifier{}
	svc := newTestService(repo, notes)

	summary, err := svc.RunSweep(context.Background(), "2025-06")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Charged)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, repo.payments, 1)
	assert.Equal(t, "user-2", repo.payments[0].UserUID)
}

func TestRunSweep_ConvertsToUserCurrency(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("user-1", "RUB", "4242", intPtr(1), nil)
	notes := &fakeNotifier{}
	svc := newTestService(repo, notes)

	summary, err := svc.RunSweep(context.Background(), "2025-06")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Charged)

	require.Len(t, repo.payments, 1)
	p := repo.payments[0]
	assert.True(t, p.Amount.Equal(decimal.RequireFromString("4.99")),
		"в книге сумма остаётся в валюте учёта")
	assert.True(t, p.ExchangeRate.Equal(decimal.RequireFromString("96.50")))
	assert.Equal(t, "RUB", p.CurrencyCode)
}

func TestRunSweep_SkipsUserBilledConcurrently(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("user-1", "USD", "4242", intPtr(1), strPtr("2025-06"))
	notes := &fakeNotifier{}
	svc := newTestService(repo, notes)

	// Выборка пользователя не вернёт, но billUser с такой отметкой
	// обязан пропустить его и сам по себе.
	summary, err := svc.RunSweep(context.Background(), "2025-06")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Charged)
	assert.Empty(t, repo.payments)

	outcome, err := svc.billUser(context.Background(), repo.users["user-1"], "2025-06")
	assert.ErrorIs(t, err, errAlreadyBilled)
	assert.Equal(t, "skipped", outcome)
}

func TestPeriodOf(t *testing.T) {
	assert.Equal(t, "2025-06", PeriodOf(time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-12", PeriodOf(time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)))
}
