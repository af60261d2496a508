// Package sender содержит приложение воркера уведомлений: читает очереди
// RabbitMQ и отправляет письма пользователям.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/streaming-entitlements/internal/config"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/streaming-entitlements/internal/services/sender"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.Service
	logger        *slog.Logger
}

func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	queues := rabbitmq.GetNotificationQueues()
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(&cfg.SMTP, logger)
	senderService := senderservice.New(transport, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	consumers := map[string]func([]byte) error{
		"notification.receipt":        a.senderService.SendReceipt,
		"notification.payment_failed": a.senderService.SendPaymentFailed,
		"notification.cancellation":   a.senderService.SendCancellation,
	}

	for queue, handler := range consumers {
		go func(queue string, handler func([]byte) error) {
			if err := rabbitmq.ConsumeMessages(ctx, a.ch, queue, handler); err != nil {
				a.logger.Error("consumer stopped", slog.String("queue", queue), slog.Any("err", err))
			}
		}(queue, handler)
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
