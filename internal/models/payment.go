package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment представляет строку платёжной книги. Записи только добавляются,
// никогда не изменяются и не удаляются.
type Payment struct {
	ID      int    `json:"id"`
	UserUID string `json:"user_uid"`
	TierID  int    `json:"tier_id"`
	// Amount хранится в валюте учёта, ExchangeRate и CurrencyCode
	// фиксируют курс и исходную валюту на момент списания.
	Amount          decimal.Decimal `json:"amount"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	CurrencyCode    string          `json:"currency_code"`
	CardLast4       string          `json:"card_last4"`
	TransactionDate time.Time       `json:"transaction_date"`
}
