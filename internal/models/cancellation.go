package models

import "time"

// CancellationRequest представляет отложенную заявку на отмену подписки.
// Заявки не удаляются: обработанные остаются в таблице как журнал.
type CancellationRequest struct {
	ID            int       `json:"id"`
	UserUID       string    `json:"user_uid"`
	RequestedAt   time.Time `json:"requested_at"`
	EffectiveDate time.Time `json:"effective_date"`
	Processed     bool      `json:"processed"`
}

// DummyCancellation используется для приёма запроса на отмену подписки.
// Дата приходит строкой в формате 2006-01-02.
type DummyCancellation struct {
	EffectiveDate string `json:"effective_date" validate:"required,datetime=2006-01-02"`
}
