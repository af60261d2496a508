package subscription

import (
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
)

// ChargeForChange вычисляет сумму немедленного списания при смене тарифа
// в валюте учёта.
//
// Правила:
//   - активного тарифа нет: полная месячная плата нового тарифа;
//   - повышение (больший Rank): разница плат, но не меньше нуля;
//   - понижение или тот же ранг: ноль, возвратов не бывает.
func ChargeForChange(current, next *models.Tier) decimal.Decimal {
	if current == nil {
		return next.MonthlyFee
	}
	if next.Rank > current.Rank {
		delta := next.MonthlyFee.Sub(current.MonthlyFee)
		if delta.IsNegative() {
			return decimal.Zero
		}
		return delta
	}
	return decimal.Zero
}
