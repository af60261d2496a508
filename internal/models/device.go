package models

import "time"

// Device представляет устройство, привязанное к пользователю.
// Строка устройства и есть сессия: пока она существует, запросы
// с соответствующим токеном считаются авторизованными.
type Device struct {
	ID           int       `json:"id"`
	UserUID      string    `json:"user_uid"`
	DeviceToken  string    `json:"-"` // Непрозрачный токен, уникален в пределах пользователя
	DeviceName   string    `json:"device_name"`
	RegisteredAt time.Time `json:"registered_at"`
	LastLogin    time.Time `json:"last_login"`
}

// DummyRegisterDevice используется для приёма запроса на регистрацию устройства.
type DummyRegisterDevice struct {
	DeviceToken string `json:"device_token" validate:"required"`
	DeviceName  string `json:"device_name" validate:"required"`
}
