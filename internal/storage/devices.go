package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
)

// ListUserDevices возвращает устройства пользователя, отсортированные
// по последнему входу (свежие первыми, при равенстве — меньший id).
func (s *Storage) ListUserDevices(ctx context.Context, db DBTX, userUID string) ([]*models.Device, error) {
	const op = "storage.ListUserDevices"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, device_token, device_name, registered_at, last_login
			  FROM devices
			  WHERE user_uid = $1
			  ORDER BY last_login DESC, id`
	rows, err := s.q(db).QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Device
	for rows.Next() {
		var d models.Device
		if err := rows.Scan(&d.ID, &d.UserUID, &d.DeviceToken, &d.DeviceName,
			&d.RegisteredAt, &d.LastLogin); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountUserDevices возвращает количество устройств пользователя.
func (s *Storage) CountUserDevices(ctx context.Context, userUID string) (int, error) {
	const op = "storage.CountUserDevices"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	query := `SELECT COUNT(*) FROM devices WHERE user_uid = $1`
	if err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// InsertDevice вставляет новое устройство и возвращает его ID.
func (s *Storage) InsertDevice(ctx context.Context, db DBTX, device models.Device) (int, error) {
	const op = "storage.InsertDevice"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO devices (user_uid, device_token, device_name, registered_at, last_login)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	var newID int
	err := s.q(db).QueryRowContext(ctx, query,
		device.UserUID, device.DeviceToken, device.DeviceName,
		device.RegisteredAt, device.LastLogin).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// TouchDeviceByToken обновляет last_login устройства по токену.
// Возвращает обновлённое устройство либо ErrDeviceNotFound.
func (s *Storage) TouchDeviceByToken(ctx context.Context, db DBTX, userUID, token string, now time.Time) (*models.Device, error) {
	const op = "storage.TouchDeviceByToken"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE devices SET last_login = $1
			  WHERE user_uid = $2 AND device_token = $3
			  RETURNING id, user_uid, device_token, device_name, registered_at, last_login`
	var d models.Device
	err := s.q(db).QueryRowContext(ctx, query, now, userUID, token).Scan(
		&d.ID, &d.UserUID, &d.DeviceToken, &d.DeviceName, &d.RegisteredAt, &d.LastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrDeviceNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &d, nil
}

// DeleteDevice удаляет устройство по ID и возвращает количество удалённых строк.
func (s *Storage) DeleteDevice(ctx context.Context, db DBTX, deviceID int) (int, error) {
	const op = "storage.DeleteDevice"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM devices WHERE id = $1`
	result, err := s.q(db).ExecContext(ctx, query, deviceID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// DeleteUserDevice удаляет устройство пользователя с проверкой владения.
// Возвращает количество удалённых строк: ноль означает, что устройства нет
// либо оно принадлежит другому пользователю.
func (s *Storage) DeleteUserDevice(ctx context.Context, db DBTX, deviceID int, userUID string) (int, error) {
	const op = "storage.DeleteUserDevice"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM devices WHERE id = $1 AND user_uid = $2`
	result, err := s.q(db).ExecContext(ctx, query, deviceID, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// DeleteAllUserDevices удаляет все устройства пользователя и возвращает
// количество удалённых строк.
func (s *Storage) DeleteAllUserDevices(ctx context.Context, db DBTX, userUID string) (int, error) {
	const op = "storage.DeleteAllUserDevices"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM devices WHERE user_uid = $1`
	result, err := s.q(db).ExecContext(ctx, query, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
