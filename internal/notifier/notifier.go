// Package notifier публикует исходящие уведомления в RabbitMQ.
//
// Доставка принципиально best-effort: ошибки публикации логируются и
// проглатываются, ни одна операция ядра от них не зависит и не откатывается.
package notifier

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/sl"
)

// ReceiptNote тело квитанции об успешном списании.
type ReceiptNote struct {
	Email    string          `json:"email"`
	Username string          `json:"username"`
	TierName string          `json:"tier_name"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	PaidAt   time.Time       `json:"paid_at"`
}

// PaymentFailedNote тело предупреждения о неуспешном списании.
type PaymentFailedNote struct {
	Email    string    `json:"email"`
	Username string    `json:"username"`
	TierName string    `json:"tier_name"`
	FailedAt time.Time `json:"failed_at"`
}

// CancellationNote тело подтверждения отмены подписки.
type CancellationNote struct {
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// Notifier публикует уведомления в обменник notifications.
type Notifier struct {
	ch  *amqp.Channel
	log *slog.Logger
}

// New создает новый Notifier.
func New(ch *amqp.Channel, log *slog.Logger) *Notifier {
	return &Notifier{ch: ch, log: log}
}

// SendReceipt публикует квитанцию об оплате.
func (n *Notifier) SendReceipt(note ReceiptNote) {
	n.publish(rabbitmq.KeyReceipt, note)
}

// SendPaymentFailed публикует предупреждение о неуспешном списании.
func (n *Notifier) SendPaymentFailed(note PaymentFailedNote) {
	n.publish(rabbitmq.KeyPaymentFailed, note)
}

// SendCancellation публикует подтверждение отмены.
func (n *Notifier) SendCancellation(note CancellationNote) {
	n.publish(rabbitmq.KeyCancellation, note)
}

func (n *Notifier) publish(key string, message any) {
	if err := rabbitmq.PublishMessage(n.ch, rabbitmq.Exchange, key, message); err != nil {
		n.log.Warn("failed to publish notification",
			slog.String("routing_key", key), sl.Err(err))
	}
}
