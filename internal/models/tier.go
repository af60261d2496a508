package models

import "github.com/shopspring/decimal"

// Tier представляет тарифный план — неизменяемую запись каталога.
// Поле Rank задаёт порядок тарифов: переход на тариф с большим Rank
// считается повышением, с меньшим — понижением. Порядок идентификаторов
// для этого не используется.
type Tier struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Rank         int             `json:"rank"`
	MaxDevices   int             `json:"max_devices"`   // Допустимое число устройств, >= 1
	CooldownDays int             `json:"cooldown_days"` // Минимальный интервал между сменами устройства, >= 0
	MonthlyFee   decimal.Decimal `json:"monthly_fee"`   // Ежемесячная плата в валюте учёта
	CanDownload  bool            `json:"can_download"`
}

// DefaultEntitlement возвращает права пользователя без активного тарифа:
// одно устройство, без ограничения на смену.
func DefaultEntitlement() *Tier {
	return &Tier{
		Name:         "none",
		MaxDevices:   1,
		CooldownDays: 0,
		MonthlyFee:   decimal.Zero,
	}
}

// DummyChangePlan используется для приёма запроса на смену тарифа.
type DummyChangePlan struct {
	TierID int `json:"tier_id" validate:"required,gt=0"`
}
