// Package middlewarectx содержит HTTP middleware и типизированные ключи
// контекста, через которые обработчики получают данные аутентификации.
package middlewarectx

// Key — типизированный ключ контекста запроса.
type Key string

const (
	// User имя аутентифицированного пользователя.
	User Key = "username"
	// Role роль аутентифицированного пользователя.
	Role Key = "role"
	// UserUID идентификатор аутентифицированного пользователя.
	UserUID Key = "user_uid"
	// DeviceID идентификатор устройства, прошедшего проверку доступа.
	DeviceID Key = "device_id"
)
