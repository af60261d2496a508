// Package paymentgateway описывает платёжный примитив ядра.
//
// Реальная интеграция с платёжным шлюзом сюда не входит: Simulator
// воспроизводит ответы шлюза детерминированно, этого достаточно для
// жизненного цикла подписок. Контракт Client при этом совпадает с тем,
// что предоставил бы настоящий шлюз.
package paymentgateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrDeclined возвращается, когда шлюз отклонил списание.
var ErrDeclined = errors.New("payment declined")

// ChargeRequest описывает одно списание. Сумма указана в валюте плательщика.
type ChargeRequest struct {
	UserUID   string          `json:"user_uid"`
	TierID    int             `json:"tier_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	CardLast4 string          `json:"card_last4"`
}

// Client интерфейс платёжного примитива. Вызов безопасен к повтору:
// каждое обращение — отдельная попытка списания без скрытого состояния.
type Client interface {
	Charge(ctx context.Context, req ChargeRequest) error
}
