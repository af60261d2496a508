// Package device реализует реестр устройств: допуск устройства с учётом
// лимита тарифа и периода охлаждения, проверку доступа по токену,
// просмотр и удаление устройств.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/streaming-entitlements/internal/metrics"
	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
	"github.com/magabrotheeeer/streaming-entitlements/internal/storage"
)

// Ошибки уровня сервиса.
var (
	// ErrNotRecognized означает, что токен не соответствует живому устройству.
	// Клиент должен перерегистрировать устройство, а не вводить пароль заново.
	ErrNotRecognized = errors.New("device not recognized, re-authenticate")
	// ErrNotFoundOrDenied означает, что устройства нет либо оно чужое.
	ErrNotFoundOrDenied = errors.New("device not found or access denied")
)

// Сообщения успешного допуска, возвращаются вызывающему как есть.
const (
	msgRegistered   = "device registered"
	msgLoginUpdated = "device login updated"
)

// Repository определяет методы хранилища, нужные реестру устройств.
type Repository interface {
	// WithUserTx выполняет fn под блокировкой строки пользователя.
	WithUserTx(ctx context.Context, userUID string, fn func(tx storage.DBTX) error) error
	GetTierForUser(ctx context.Context, db storage.DBTX, userUID string) (*models.Tier, error)
	ListUserDevices(ctx context.Context, db storage.DBTX, userUID string) ([]*models.Device, error)
	TouchDeviceByToken(ctx context.Context, db storage.DBTX, userUID, token string, now time.Time) (*models.Device, error)
	InsertDevice(ctx context.Context, db storage.DBTX, device models.Device) (int, error)
	DeleteDevice(ctx context.Context, db storage.DBTX, deviceID int) (int, error)
	DeleteUserDevice(ctx context.Context, db storage.DBTX, deviceID int, userUID string) (int, error)
	DeleteAllUserDevices(ctx context.Context, db storage.DBTX, userUID string) (int, error)
	CountUserDevices(ctx context.Context, userUID string) (int, error)
}

// RegisterResult описывает исход допуска устройства.
type RegisterResult struct {
	DeviceID int    `json:"device_id"`
	Message  string `json:"message"`
	Evicted  bool   `json:"evicted"`
}

// Service реализует бизнес-логику реестра устройств.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создает новый Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// RegisterDevice допускает устройство пользователя либо отклоняет попытку.
//
// Вся последовательность — чтение тарифа, проверка охлаждения, вытеснение,
// вставка — выполняется в одной транзакции под блокировкой пользователя:
// две конкурентные регистрации не могут обе пройти проверку лимита.
func (s *Service) RegisterDevice(ctx context.Context, userUID, token, name string) (*RegisterResult, error) {
	now := time.Now().UTC()
	var res RegisterResult

	err := s.repo.WithUserTx(ctx, userUID, func(tx storage.DBTX) error {
		tier, err := s.repo.GetTierForUser(ctx, tx, userUID)
		if err != nil {
			return err
		}
		if tier == nil {
			tier = models.DefaultEntitlement()
		}

		devices, err := s.repo.ListUserDevices(ctx, tx, userUID)
		if err != nil {
			return err
		}

		// Повторный вход с известного устройства — без охлаждения и лимита.
		for _, d := range devices {
			if d.DeviceToken == token {
				if _, err := s.repo.TouchDeviceByToken(ctx, tx, userUID, token, now); err != nil {
					return err
				}
				res = RegisterResult{DeviceID: d.ID, Message: msgLoginUpdated}
				return nil
			}
		}

		if days := RemainingCooldownDays(tier, devices, now); days > 0 {
			metrics.CooldownRejections.Inc()
			return &CooldownError{DaysRemaining: days}
		}

		if len(devices) >= tier.MaxDevices {
			victim := PickEviction(devices)
			if _, err := s.repo.DeleteDevice(ctx, tx, victim.ID); err != nil {
				return err
			}
			metrics.DeviceEvictions.Inc()
			res.Evicted = true
			s.log.Info("evicted least recently used device",
				slog.String("user_uid", userUID),
				slog.Int("device_id", victim.ID))
		}

		id, err := s.repo.InsertDevice(ctx, tx, models.Device{
			UserUID:      userUID,
			DeviceToken:  token,
			DeviceName:   name,
			RegisteredAt: now,
			LastLogin:    now,
		})
		if err != nil {
			return err
		}
		res.DeviceID = id
		res.Message = msgRegistered
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.DeviceRegistrations.Inc()
	s.log.Info("device admission", slog.String("user_uid", userUID),
		slog.Int("device_id", res.DeviceID), slog.String("result", res.Message))
	return &res, nil
}

// ValidateAccess проверяет, что токен соответствует живому устройству
// пользователя, и попутно обновляет last_login. Строка устройства и есть
// сессия, отдельного состояния проверка не держит.
func (s *Service) ValidateAccess(ctx context.Context, userUID, token string) (*models.Device, error) {
	d, err := s.repo.TouchDeviceByToken(ctx, nil, userUID, token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, storage.ErrDeviceNotFound) {
			return nil, ErrNotRecognized
		}
		return nil, err
	}
	return d, nil
}

// ListDevices возвращает устройства пользователя, свежие первыми.
func (s *Service) ListDevices(ctx context.Context, userUID string) ([]*models.Device, error) {
	return s.repo.ListUserDevices(ctx, nil, userUID)
}

// DeviceCount возвращает число устройств пользователя.
func (s *Service) DeviceCount(ctx context.Context, userUID string) (int, error) {
	return s.repo.CountUserDevices(ctx, userUID)
}

// RemoveDevice удаляет устройство пользователя. Успех только если строка
// действительно удалена, иначе ErrNotFoundOrDenied.
func (s *Service) RemoveDevice(ctx context.Context, deviceID int, userUID string) error {
	const op = "device.RemoveDevice"
	count, err := s.repo.DeleteUserDevice(ctx, nil, deviceID, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if count == 0 {
		return ErrNotFoundOrDenied
	}
	s.log.Info("device removed", slog.String("user_uid", userUID), slog.Int("device_id", deviceID))
	return nil
}

// ForceLogoutAll удаляет все устройства пользователя. Используется явным
// "выйти везде" и обработкой отмены подписки.
func (s *Service) ForceLogoutAll(ctx context.Context, userUID string) (int, error) {
	var count int
	err := s.repo.WithUserTx(ctx, userUID, func(tx storage.DBTX) error {
		var err error
		count, err = s.repo.DeleteAllUserDevices(ctx, tx, userUID)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("logged out all devices", slog.String("user_uid", userUID), slog.Int("count", count))
	return count, nil
}
