package paymentgateway

import (
	"context"
	"fmt"
)

// DeclineCard номер карты (последние четыре цифры), для которой Simulator
// всегда отклоняет списание. Удобно для проверки ветки неуспешного платежа.
const DeclineCard = "0000"

// Simulator реализует Client без обращения к внешнему шлюзу.
type Simulator struct {
	declineCards map[string]struct{}
}

// NewSimulator создает симулятор шлюза. Помимо DeclineCard можно передать
// дополнительные отклоняемые карты.
func NewSimulator(declineCards ...string) *Simulator {
	cards := map[string]struct{}{DeclineCard: {}}
	for _, c := range declineCards {
		cards[c] = struct{}{}
	}
	return &Simulator{declineCards: cards}
}

// Charge имитирует списание: отклоняет известные "плохие" карты и
// неположительные суммы, остальное проводит успешно.
func (s *Simulator) Charge(ctx context.Context, req ChargeRequest) error {
	const op = "paymentgateway.Charge"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if !req.Amount.IsPositive() {
		return fmt.Errorf("%s: non-positive amount %s: %w", op, req.Amount, ErrDeclined)
	}
	if _, bad := s.declineCards[req.CardLast4]; bad {
		return fmt.Errorf("%s: card %s: %w", op, req.CardLast4, ErrDeclined)
	}
	return nil
}
