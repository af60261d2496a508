package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Exchange имя direct-обменника для исходящих уведомлений.
const Exchange = "notifications"

// Routing keys исходящих уведомлений ядра.
const (
	KeyReceipt       = "receipt"        // квитанция об успешном списании
	KeyPaymentFailed = "payment_failed" // предупреждение о неуспешном списании
	KeyCancellation  = "cancellation"   // подтверждение отмены подписки
)

// QueueConfig описывает очередь и ключ маршрутизации для воркера уведомлений.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди, которые слушает notification-sender.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.receipt", RoutingKey: KeyReceipt},
		{QueueName: "notification.payment_failed", RoutingKey: KeyPaymentFailed},
		{QueueName: "notification.cancellation", RoutingKey: KeyCancellation},
	}
}

// SetupChannel создаёт канал, объявляет обменник и привязывает очереди.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	err = ch.ExchangeDeclare(
		Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(
			q.QueueName,
			q.RoutingKey,
			Exchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
