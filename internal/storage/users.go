package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
)

// RegisterUser сохраняет нового пользователя и возвращает его uid.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (uid, email, username, password_hash, role, currency_code, card_last4)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING uid`
	var uid string
	err := s.DB.QueryRowContext(ctx, query,
		user.UID, user.Email, user.Username, user.PasswordHash,
		user.Role, user.CurrencyCode, user.CardLast4).Scan(&uid)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

// GetUserByUsername возвращает пользователя по имени.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, role, currency_code, card_last4,
			         current_tier_id, tier_changed_at, last_billed_period, created_at
			  FROM users WHERE username = $1`
	return scanUser(s.DB.QueryRowContext(ctx, query, username), op)
}

// GetUserByUID возвращает пользователя по uid. Принимает DBTX, чтобы
// вызываться и внутри пользовательской транзакции.
func (s *Storage) GetUserByUID(ctx context.Context, db DBTX, userUID string) (*models.User, error) {
	const op = "storage.GetUserByUID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, role, currency_code, card_last4,
			         current_tier_id, tier_changed_at, last_billed_period, created_at
			  FROM users WHERE uid = $1`
	return scanUser(s.q(db).QueryRowContext(ctx, query, userUID), op)
}

func scanUser(row *sql.Row, op string) (*models.User, error) {
	var u models.User
	var tierID sql.NullInt64
	var tierChangedAt sql.NullTime
	var lastBilled sql.NullString
	err := row.Scan(&u.UID, &u.Email, &u.Username, &u.PasswordHash, &u.Role,
		&u.CurrencyCode, &u.CardLast4, &tierID, &tierChangedAt, &lastBilled, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if tierID.Valid {
		id := int(tierID.Int64)
		u.CurrentTierID = &id
	}
	if tierChangedAt.Valid {
		t := tierChangedAt.Time
		u.TierChangedAt = &t
	}
	if lastBilled.Valid {
		p := lastBilled.String
		u.LastBilledPeriod = &p
	}
	return &u, nil
}

// UpdateUserTier устанавливает активный тариф пользователя.
func (s *Storage) UpdateUserTier(ctx context.Context, db DBTX, userUID string, tierID int) error {
	const op = "storage.UpdateUserTier"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET current_tier_id = $1, tier_changed_at = NOW() WHERE uid = $2`
	result, err := s.q(db).ExecContext(ctx, query, tierID, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// ClearUserTier снимает активный тариф пользователя.
func (s *Storage) ClearUserTier(ctx context.Context, db DBTX, userUID string) error {
	const op = "storage.ClearUserTier"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET current_tier_id = NULL, tier_changed_at = NOW() WHERE uid = $1`
	if _, err := s.q(db).ExecContext(ctx, query, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetLastBilledPeriod отмечает расчётный период оплаченным.
func (s *Storage) SetLastBilledPeriod(ctx context.Context, db DBTX, userUID, period string) error {
	const op = "storage.SetLastBilledPeriod"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET last_billed_period = $1 WHERE uid = $2`
	if _, err := s.q(db).ExecContext(ctx, query, period, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListBillableUsers возвращает пользователей с активным тарифом, ещё не
// оплативших указанный период. Уже оплаченные в этом периоде пропускаются,
// поэтому повторный запуск обхода никого не спишет дважды.
func (s *Storage) ListBillableUsers(ctx context.Context, period string) ([]*models.User, error) {
	const op = "storage.ListBillableUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, role, currency_code, card_last4,
			         current_tier_id, tier_changed_at, last_billed_period, created_at
			  FROM users
			  WHERE current_tier_id IS NOT NULL
			    AND last_billed_period IS DISTINCT FROM $1
			  ORDER BY uid`
	rows, err := s.DB.QueryContext(ctx, query, period)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		var u models.User
		var tierID sql.NullInt64
		var tierChangedAt sql.NullTime
		var lastBilled sql.NullString
		if err := rows.Scan(&u.UID, &u.Email, &u.Username, &u.PasswordHash, &u.Role,
			&u.CurrencyCode, &u.CardLast4, &tierID, &tierChangedAt, &lastBilled, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if tierID.Valid {
			id := int(tierID.Int64)
			u.CurrentTierID = &id
		}
		if tierChangedAt.Valid {
			t := tierChangedAt.Time
			u.TierChangedAt = &t
		}
		if lastBilled.Valid {
			p := lastBilled.String
			u.LastBilledPeriod = &p
		}
		result = append(result, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
