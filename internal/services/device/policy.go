package device

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
)

const day = 24 * time.Hour

// CooldownError сообщает, что смена устройства пока запрещена политикой тарифа.
// DaysRemaining — округлённое вверх число дней до снятия запрета.
type CooldownError struct {
	DaysRemaining int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, %d day(s) remaining", e.DaysRemaining)
}

// RemainingCooldownDays возвращает, сколько дней осталось до того, как
// пользователь сможет зарегистрировать новое устройство. Ноль означает,
// что запрета нет. Отсчёт ведётся от последнего входа самого активного
// устройства; тарифы с нулевым периодом охлаждения разрешают смену сразу.
func RemainingCooldownDays(tier *models.Tier, devices []*models.Device, now time.Time) int {
	if tier.CooldownDays == 0 || len(devices) == 0 {
		return 0
	}

	mostRecent := devices[0].LastLogin
	for _, d := range devices[1:] {
		if d.LastLogin.After(mostRecent) {
			mostRecent = d.LastLogin
		}
	}

	cooldown := time.Duration(tier.CooldownDays) * day
	elapsed := now.Sub(mostRecent)
	if elapsed >= cooldown {
		return 0
	}

	remaining := cooldown - elapsed
	days := int(remaining / day)
	if remaining%day > 0 {
		days++
	}
	return days
}

// PickEviction выбирает устройство для вытеснения: с самым старым last_login,
// при равенстве — с наименьшим id, чтобы выбор был детерминированным.
func PickEviction(devices []*models.Device) *models.Device {
	if len(devices) == 0 {
		return nil
	}
	victim := devices[0]
	for _, d := range devices[1:] {
		if d.LastLogin.Before(victim.LastLogin) ||
			(d.LastLogin.Equal(victim.LastLogin) && d.ID < victim.ID) {
			victim = d
		}
	}
	return victim
}
