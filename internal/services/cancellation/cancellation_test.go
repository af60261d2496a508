package cancellation

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
	"github.com/magabrotheeeer/streaming-entitlements/internal/notifier"
	"github.com/magabrotheeeer/streaming-entitlements/internal/storage"
)

// fakeRepo — хранилище в памяти, реализующее Repository.
type fakeRepo struct {
	users    map[string]*models.User
	devices  map[string]int // uid -> число устройств
	requests []*models.CancellationRequest
	nextID   int

	failWipeFor string // uid, на котором удаление устройств падает
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:   make(map[string]*models.User),
		devices: make(map[string]int),
		nextID:  1,
	}
}

func (f *fakeRepo) addUser(uid string, tierID int, deviceCount int) {
	f.users[uid] = &models.User{
		UID: uid, Email: uid + "@example.com", Username: uid,
		CurrentTierID: &tierID,
	}
	f.devices[uid] = deviceCount
}

func (f *fakeRepo) WithUserTx(_ context.Context, userUID string, fn func(tx storage.DBTX) error) error {
	savedUser := *f.users[userUID]
	savedDevices := f.devices[userUID]
	savedRequests := make([]*models.CancellationRequest, len(f.requests))
	for i, r := range f.requests {
		copied := *r
		savedRequests[i] = &copied
	}
	if err := fn(nil); err != nil {
		restored := savedUser
		f.users[userUID] = &restored
		f.devices[userUID] = savedDevices
		f.requests = savedRequests
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

func (f *fakeRepo) CreateCancellationRequest(_ context.Context, req models.CancellationRequest) (int, error) {
	req.ID = f.nextID
	f.nextID++
	f.requests = append(f.requests, &req)
	return req.ID, nil
}

func (f *fakeRepo) LatestPendingRequest(_ context.Context, userUID string) (*models.CancellationRequest, error) {
	var latest *models.CancellationRequest
	for _, r := range f.requests {
		if r.UserUID != userUID || r.Processed {
			continue
		}
		if latest == nil || r.RequestedAt.After(latest.RequestedAt) ||
			(r.RequestedAt.Equal(latest.RequestedAt) && r.ID > latest.ID) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeRepo) ListDueRequests(_ context.Context, asOf time.Time) ([]*models.CancellationRequest, error) {
	var due []*models.CancellationRequest
	for _, r := range f.requests {
		if !r.Processed && !r.EffectiveDate.After(asOf) {
			copied := *r
			due = append(due, &copied)
		}
	}
	return due, nil
}

func (f *fakeRepo) MarkRequestProcessed(_ context.Context, _ storage.DBTX, requestID int) error {
	for _, r := range f.requests {
		if r.ID == requestID {
			r.Processed = true
		}
	}
	return nil
}

func (f *fakeRepo) ClearUserTier(_ context.Context, _ storage.DBTX, userUID string) error {
	f.users[userUID].CurrentTierID = nil
	return nil
}

func (f *fakeRepo) DeleteAllUserDevices(_ context.Context, _ storage.DBTX, userUID string) (int, error) {
	if f.failWipeFor == userUID {
		return 0, errors.New("device wipe failed")
	}
	count := f.devices[userUID]
	f.devices[userUID] = 0
	return count, nil
}

// fakeNotifier — накапливает отправленные подтверждения.
type fakeNotifier struct {
	notes []notifier.CancellationNote
}

func (n *fakeNotifier) SendCancellation(note notifier.CancellationNote) {
	n.notes = append(n.notes, note)
}

func newTestService(repo Repository, n Notifier) *Service {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(repo, n, logger)
}

func TestRequestCancellation_AndPending(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("user-1", 3, 2)
	svc := newTestService(repo, &fakeNotifier{})
	ctx := context.Background()

	first, err := svc.RequestCancellation(ctx, "user-1",
		time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	// Заявка не меняет права немедленно.
	assert.NotNil(t, repo.users["user-1"].CurrentTierID)
	assert.Equal(t, 2, repo.devices["user-1"])

	// Вторая заявка вытесняет первую из "текущей".
	second, err := svc.RequestCancellation(ctx, "user-1",
		time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	pending, err := svc.PendingRequest(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, second.ID, pending.ID)
}

func TestRunSweep_FutureRequestUntouched(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("user-1", 3, 2)
	notes := &fakeNotifier{}
	svc := newTestService(repo, notes)
	ctx := context.Background()

	now := time.Date(2025, 6, 15, 3, 30, 0, 0, time.UTC)
	_, err := svc.RequestCancellation(ctx, "user-1", now.AddDate(0, 0, 10))
	require.NoError(t, err)

	summary, err := svc.RunSweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.NotNil(t, repo.users["user-1"].CurrentTierID)
	assert.Equal(t, 2, repo.devices["user-1"])
	assert.Empty(t, notes.notes)
}

func TestRunSweep_DueRequestProcessedOnce(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("user-1", 3, 2)
	notes := &fakeNotifier{}
	svc := newTestService(repo, notes)
	ctx := context.Background()

	now := time.Date(2025, 6, 15, 3, 30, 0, 0, time.UTC)
	_, err := svc.RequestCancellation(ctx, "user-1", now.AddDate(0, 0, -1))
	require.NoError(t, err)

	summary, err := svc.RunSweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)

	assert.Nil(t, repo.users["user-1"].CurrentTierID, "тариф снят")
	assert.Equal(t, 0, repo.devices["user-1"], "все устройства удалены")
	require.Len(t, notes.notes, 1)
	assert.Equal(t, "user-1", notes.notes[0].Username)

	// Повторный обход обработанную заявку не трогает.
	summary, err = svc.RunSweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Len(t, notes.notes, 1)

	pending, err := svc.PendingRequest(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestRunSweep_PartialApplicationRolledBack(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("user-1", 3, 2)
	repo.failWipeFor = "user-1"
	notes := &fakeNotifier{}
	svc := newTestService(repo, notes)
	ctx := context.Background()

	now := time.Date(2025, 6, 15, 3, 30, 0, 0, time.UTC)
	_, err := svc.RequestCancellation(ctx, "user-1", now.AddDate(0, 0, -1))
	require.NoError(t, err)

	summary, err := svc.RunSweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	// Снятие тарифа откатилось вместе с неудавшимся удалением устройств.
	assert.NotNil(t, repo.users["user-1"].CurrentTierID)
	assert.Equal(t, 2, repo.devices["user-1"])
	assert.Empty(t, notes.notes)

	// Заявка осталась необработанной и применится следующим обходом.
	repo.failWipeFor = ""
	summary, err = svc.RunSweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
}

func TestRunSweep_FailureDoesNotStopOthers(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("user-1", 3, 1)
	repo.addUser("user-2", 1, 1)
	repo.failWipeFor = "user-1"
	notes := &fakeNotifier{}
	svc := newTestService(repo, notes)
	ctx := context.Background()

	now := time.Date(2025, 6, 15, 3, 30, 0, 0, time.UTC)
	_, err := svc.RequestCancellation(ctx, "user-1", now.AddDate(0, 0, -1))
	require.NoError(t, err)
	_, err = svc.RequestCancellation(ctx, "user-2", now.AddDate(0, 0, -1))
	require.NoError(t, err)

	summary, err := svc.RunSweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Nil(t, repo.users["user-2"].CurrentTierID)
}
