package subscription

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
)

func TestChargeForChange(t *testing.T) {
	basic := &models.Tier{ID: 1, Rank: 1, MonthlyFee: decimal.RequireFromString("4.99")}
	standard := &models.Tier{ID: 2, Rank: 2, MonthlyFee: decimal.RequireFromString("7.49")}
	premium := &models.Tier{ID: 3, Rank: 3, MonthlyFee: decimal.RequireFromString("9.99")}

	tests := []struct {
		name     string
		current  *models.Tier
		next     *models.Tier
		expected string
	}{
		{
			name:     "без тарифа берётся полная плата",
			current:  nil,
			next:     premium,
			expected: "9.99",
		},
		{
			name:     "повышение списывает разницу",
			current:  basic,
			next:     premium,
			expected: "5",
		},
		{
			name:     "повышение на соседний тариф",
			current:  basic,
			next:     standard,
			expected: "2.5",
		},
		{
			name:     "понижение бесплатно и без возврата",
			current:  premium,
			next:     basic,
			expected: "0",
		},
		{
			name:     "тот же тариф ничего не стоит",
			current:  standard,
			next:     standard,
			expected: "0",
		},
		{
			name: "повышение ранга с меньшей платой не уходит в минус",
			current: &models.Tier{
				Rank: 1, MonthlyFee: decimal.RequireFromString("12.00"),
			},
			next: &models.Tier{
				Rank: 2, MonthlyFee: decimal.RequireFromString("9.99"),
			},
			expected: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChargeForChange(tt.current, tt.next)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.expected)),
				"ожидалось %s, получено %s", tt.expected, got)
		})
	}
}
