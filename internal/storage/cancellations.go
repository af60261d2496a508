package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
)

// CreateCancellationRequest вставляет заявку на отмену и возвращает её ID.
func (s *Storage) CreateCancellationRequest(ctx context.Context, req models.CancellationRequest) (int, error) {
	const op = "storage.CreateCancellationRequest"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO cancellation_requests (user_uid, requested_at, effective_date, processed)
			  VALUES ($1, $2, $3, false)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		req.UserUID, req.RequestedAt, req.EffectiveDate).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// LatestPendingRequest возвращает последнюю необработанную заявку пользователя
// или nil, если такой нет. При нескольких заявках авторитетна самая свежая.
func (s *Storage) LatestPendingRequest(ctx context.Context, userUID string) (*models.CancellationRequest, error) {
	const op = "storage.LatestPendingRequest"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, requested_at, effective_date, processed
			  FROM cancellation_requests
			  WHERE user_uid = $1 AND processed = false
			  ORDER BY requested_at DESC, id DESC
			  LIMIT 1`
	var r models.CancellationRequest
	err := s.DB.QueryRowContext(ctx, query, userUID).Scan(
		&r.ID, &r.UserUID, &r.RequestedAt, &r.EffectiveDate, &r.Processed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &r, nil
}

// ListDueRequests возвращает необработанные заявки, чья дата вступления
// в силу наступила. Обработанные заявки предикат не выбирает никогда.
func (s *Storage) ListDueRequests(ctx context.Context, asOf time.Time) ([]*models.CancellationRequest, error) {
	const op = "storage.ListDueRequests"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, requested_at, effective_date, processed
			  FROM cancellation_requests
			  WHERE processed = false AND effective_date <= $1
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.CancellationRequest
	for rows.Next() {
		var r models.CancellationRequest
		if err := rows.Scan(&r.ID, &r.UserUID, &r.RequestedAt,
			&r.EffectiveDate, &r.Processed); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkRequestProcessed помечает заявку обработанной.
func (s *Storage) MarkRequestProcessed(ctx context.Context, db DBTX, requestID int) error {
	const op = "storage.MarkRequestProcessed"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE cancellation_requests SET processed = true WHERE id = $1`
	if _, err := s.q(db).ExecContext(ctx, query, requestID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
