// Package storage реализует хранилище данных на основе PostgreSQL
// для пользователей, тарифов, устройств, платежей и заявок на отмену.
// Все операции над состоянием одного пользователя сериализуются через
// блокировку его строки (WithUserTx).
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Ошибки уровня хранилища, по которым верхние слои различают "не найдено".
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrTierNotFound   = errors.New("tier not found")
	ErrDeviceNotFound = errors.New("device not found")
)

// DBTX объединяет *sql.DB и *sql.Tx: методы, которым всё равно,
// выполняются они в транзакции или нет, принимают его первым аргументом.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// q возвращает переданный DBTX либо собственное соединение, если db == nil.
// Методы, принимающие DBTX, можно вызывать и вне транзакции.
func (s *Storage) q(db DBTX) DBTX {
	if db == nil {
		return s.DB
	}
	return db
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'devices'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table devices missing or query error: %w", err)
	}
	return nil
}

// WithUserTx выполняет fn в транзакции, предварительно заблокировав строку
// пользователя. Две конкурентные операции над одним пользователем — проверка
// лимита устройств, смена тарифа, списание, отмена — выстраиваются в очередь
// на этой блокировке.
func (s *Storage) WithUserTx(ctx context.Context, userUID string, fn func(tx DBTX) error) error {
	const op = "storage.WithUserTx"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var uid string
	err = tx.QueryRowContext(ctx, `SELECT uid FROM users WHERE uid = $1 FOR UPDATE`, userUID).Scan(&uid)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
