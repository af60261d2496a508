// Package exchange реализует справочник курсов валют.
//
// Конвертация трактуется как чистая функция: Rate(from, to) возвращает
// множитель либо ошибку, если пара неизвестна. Курсы фиксируются при
// создании справочника и не меняются во время работы.
package exchange

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrUnknownPair возвращается, когда курс для пары валют не задан.
var ErrUnknownPair = fmt.Errorf("unknown currency pair")

// Rates хранит курсы относительно валюты учёта.
type Rates struct {
	base  string
	rates map[string]decimal.Decimal
}

// NewRates создаёт справочник с курсами к базовой валюте.
// Ключ карты — код валюты, значение — сколько единиц этой валюты стоит
// одна единица базовой.
func NewRates(base string, perBase map[string]decimal.Decimal) *Rates {
	rates := make(map[string]decimal.Decimal, len(perBase)+1)
	for code, rate := range perBase {
		rates[code] = rate
	}
	rates[base] = decimal.NewFromInt(1)
	return &Rates{base: base, rates: rates}
}

// DefaultRates возвращает справочник с курсами по умолчанию к USD.
func DefaultRates() *Rates {
	return NewRates("USD", map[string]decimal.Decimal{
		"EUR": decimal.RequireFromString("0.92"),
		"GBP": decimal.RequireFromString("0.79"),
		"RUB": decimal.RequireFromString("96.50"),
		"JPY": decimal.RequireFromString("147.20"),
	})
}

// Base возвращает код валюты учёта.
func (r *Rates) Base() string {
	return r.base
}

// Rate возвращает множитель для перевода суммы из валюты from в валюту to.
func (r *Rates) Rate(from, to string) (decimal.Decimal, error) {
	const op = "exchange.Rate"
	fromRate, ok := r.rates[from]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: %s: %w", op, from, ErrUnknownPair)
	}
	toRate, ok := r.rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: %s: %w", op, to, ErrUnknownPair)
	}
	return toRate.Div(fromRate), nil
}

// Convert переводит сумму из валюты from в валюту to.
func (r *Rates) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	rate, err := r.Rate(from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}
