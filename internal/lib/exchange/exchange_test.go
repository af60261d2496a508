package exchange

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRate(t *testing.T) {
	rates := NewRates("USD", map[string]decimal.Decimal{
		"EUR": decimal.RequireFromString("0.92"),
		"RUB": decimal.RequireFromString("96.50"),
	})

	tests := []struct {
		name    string
		from    string
		to      string
		want    string
		wantErr bool
	}{
		{
			name: "базовая валюта в себя",
			from: "USD",
			to:   "USD",
			want: "1",
		},
		{
			name: "из базовой в известную",
			from: "USD",
			to:   "EUR",
			want: "0.92",
		},
		{
			name:    "неизвестная валюта получателя",
			from:    "USD",
			to:      "XXX",
			wantErr: true,
		},
		{
			name:    "неизвестная валюта источника",
			from:    "XXX",
			to:      "USD",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := rates.Rate(tt.from, tt.to)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownPair)
				return
			}
			require.NoError(t, err)
			assert.True(t, rate.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", rate, tt.want)
		})
	}
}

func TestConvert(t *testing.T) {
	rates := DefaultRates()

	got, err := rates.Convert(decimal.RequireFromString("9.99"), "USD", "EUR")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("9.1908")), "got %s", got)
}
