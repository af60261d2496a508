package paymentgateway

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSimulator_Charge(t *testing.T) {
	tests := []struct {
		name    string
		req     ChargeRequest
		decline []string
		wantErr bool
	}{
		{
			name: "успешное списание",
			req: ChargeRequest{
				UserUID:   "uid-1",
				Amount:    decimal.RequireFromString("9.99"),
				Currency:  "USD",
				CardLast4: "4242",
			},
		},
		{
			name: "карта всегда отклоняется",
			req: ChargeRequest{
				UserUID:   "uid-1",
				Amount:    decimal.RequireFromString("9.99"),
				Currency:  "USD",
				CardLast4: DeclineCard,
			},
			wantErr: true,
		},
		{
			name: "дополнительная отклоняемая карта",
			req: ChargeRequest{
				UserUID:   "uid-1",
				Amount:    decimal.RequireFromString("9.99"),
				Currency:  "USD",
				CardLast4: "1111",
			},
			decline: []string{"1111"},
			wantErr: true,
		},
		{
			name: "нулевая сумма отклоняется",
			req: ChargeRequest{
				UserUID:   "uid-1",
				Amount:    decimal.Zero,
				Currency:  "USD",
				CardLast4: "4242",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewSimulator(tt.decline...)
			err := sim.Charge(context.Background(), tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDeclined)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
