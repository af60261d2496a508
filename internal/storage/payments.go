package storage

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
)

// InsertPayment добавляет строку в платёжную книгу и возвращает её ID.
// Книга только пополняется: операций изменения и удаления нет.
func (s *Storage) InsertPayment(ctx context.Context, db DBTX, payment models.Payment) (int, error) {
	const op = "storage.InsertPayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (user_uid, tier_id, amount, exchange_rate, currency_code, card_last4, transaction_date)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id`
	var newID int
	err := s.q(db).QueryRowContext(ctx, query,
		payment.UserUID, payment.TierID, payment.Amount, payment.ExchangeRate,
		payment.CurrencyCode, payment.CardLast4, payment.TransactionDate).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListUserPayments возвращает историю платежей пользователя с пагинацией,
// свежие платежи первыми.
func (s *Storage) ListUserPayments(ctx context.Context, userUID string, limit, offset int) ([]*models.Payment, error) {
	const op = "storage.ListUserPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, tier_id, amount, exchange_rate, currency_code, card_last4, transaction_date
			  FROM payments
			  WHERE user_uid = $1
			  ORDER BY id DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.UserUID, &p.TierID, &p.Amount, &p.ExchangeRate,
			&p.CurrencyCode, &p.CardLast4, &p.TransactionDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountUserPayments возвращает число платежей пользователя.
func (s *Storage) CountUserPayments(ctx context.Context, userUID string) (int, error) {
	const op = "storage.CountUserPayments"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	query := `SELECT COUNT(*) FROM payments WHERE user_uid = $1`
	if err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
