// Package models содержит доменные структуры сервиса: пользователей, тарифы,
// устройства, платежи и заявки на отмену, а также вспомогательные типы
// для приёма данных из JSON-запросов.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID           string     // Уникальный идентификатор пользователя
	Email         string     // Электронная почта
	Username      string     // Имя пользователя (уникальное)
	PasswordHash  string     // Хэш пароля пользователя
	Role          string     // Роль пользователя, admin или user
	CurrencyCode  string     // Валюта, в которой пользователь оплачивает подписку
	CardLast4     string     // Последние четыре цифры привязанной карты
	CurrentTierID *int       // Активный тариф, nil — тарифа нет
	TierChangedAt *time.Time // Дата последней смены тарифа
	// LastBilledPeriod хранит последний оплаченный расчётный период в формате "2006-01".
	// Повторный запуск ежемесячного списания в том же периоде пропускает пользователя.
	LastBilledPeriod *string
	CreatedAt        time.Time
}

// DummyRegisterUser используется для приёма данных регистрации из JSON-запроса.
type DummyRegisterUser struct {
	Email        string `json:"email" validate:"required,email"`
	Username     string `json:"username" validate:"required,alphanum"`
	Password     string `json:"password" validate:"required,min=8"`
	CurrencyCode string `json:"currency_code" validate:"required,len=3"`
	CardLast4    string `json:"card_last4" validate:"required,len=4,numeric"`
}

// DummyLogin используется для приёма данных входа из JSON-запроса.
type DummyLogin struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
