package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
)

// GetTier возвращает тариф по его ID.
func (s *Storage) GetTier(ctx context.Context, db DBTX, tierID int) (*models.Tier, error) {
	const op = "storage.GetTier"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, rank, max_devices, cooldown_days, monthly_fee, can_download
			  FROM tiers WHERE id = $1`
	var t models.Tier
	err := s.q(db).QueryRowContext(ctx, query, tierID).Scan(
		&t.ID, &t.Name, &t.Rank, &t.MaxDevices, &t.CooldownDays, &t.MonthlyFee, &t.CanDownload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrTierNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &t, nil
}

// GetTierForUser возвращает активный тариф пользователя или nil,
// если тарифа нет.
func (s *Storage) GetTierForUser(ctx context.Context, db DBTX, userUID string) (*models.Tier, error) {
	const op = "storage.GetTierForUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT t.id, t.name, t.rank, t.max_devices, t.cooldown_days, t.monthly_fee, t.can_download
			  FROM users u
			  JOIN tiers t ON t.id = u.current_tier_id
			  WHERE u.uid = $1`
	var t models.Tier
	err := s.q(db).QueryRowContext(ctx, query, userUID).Scan(
		&t.ID, &t.Name, &t.Rank, &t.MaxDevices, &t.CooldownDays, &t.MonthlyFee, &t.CanDownload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &t, nil
}

// ListTiers возвращает каталог тарифов в порядке возрастания ранга.
func (s *Storage) ListTiers(ctx context.Context) ([]*models.Tier, error) {
	const op = "storage.ListTiers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, rank, max_devices, cooldown_days, monthly_fee, can_download
			  FROM tiers ORDER BY rank`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Tier
	for rows.Next() {
		var t models.Tier
		if err := rows.Scan(&t.ID, &t.Name, &t.Rank, &t.MaxDevices,
			&t.CooldownDays, &t.MonthlyFee, &t.CanDownload); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
