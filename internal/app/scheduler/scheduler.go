// Package scheduler содержит приложение фоновых обходов: ежемесячное
// списание абонентской платы и ежедневная обработка заявок на отмену.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/streaming-entitlements/internal/config"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/exchange"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/sl"
	"github.com/magabrotheeeer/streaming-entitlements/internal/notifier"
	"github.com/magabrotheeeer/streaming-entitlements/internal/paymentgateway"
	billingservice "github.com/magabrotheeeer/streaming-entitlements/internal/services/billing"
	cancellationservice "github.com/magabrotheeeer/streaming-entitlements/internal/services/cancellation"
	"github.com/magabrotheeeer/streaming-entitlements/internal/storage"
)

// App представляет приложение планировщика.
type App struct {
	billingService      *billingservice.Service
	cancellationService *cancellationservice.Service
	cron                *cron.Cron
	cfg                 *config.Config
	conn                *amqp.Connection
	ch                  *amqp.Channel
	logger              *slog.Logger
}

func waitForDB(db *storage.Storage) error {
	for range 10 {
		err := storage.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	queues := rabbitmq.GetNotificationQueues()
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	n := notifier.New(ch, logger)
	gateway := paymentgateway.NewSimulator()
	rates := exchange.DefaultRates()

	billingService := billingservice.New(db, gateway, rates, n, nil, logger)
	cancellationService := cancellationservice.New(db, n, logger)

	return &App{
		billingService:      billingService,
		cancellationService: cancellationService,
		cron:                cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		cfg:                 cfg,
		conn:                conn,
		ch:                  ch,
		logger:              logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run запускает планировщик.
func (a *App) Run(ctx context.Context) error {
	_, err := a.cron.AddFunc(a.cfg.BillingCronSpec, func() {
		period := billingservice.PeriodOf(time.Now())
		if _, err := a.billingService.RunSweep(ctx, period); err != nil {
			a.logger.Error("billing sweep failed", slog.String("period", period), sl.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule billing sweep: %w", err)
	}

	_, err = a.cron.AddFunc(a.cfg.CancelCronSpec, func() {
		if _, err := a.cancellationService.RunSweep(ctx, time.Now().UTC()); err != nil {
			a.logger.Error("cancellation sweep failed", sl.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule cancellation sweep: %w", err)
	}

	a.cron.Start()
	a.logger.Info("scheduler started",
		slog.String("billing_cron", a.cfg.BillingCronSpec),
		slog.String("cancel_cron", a.cfg.CancelCronSpec))

	<-ctx.Done()

	a.logger.Info("shutting down scheduler service")

	stopCtx := a.cron.Stop()
	<-stopCtx.Done()

	closeResources(a.ch, a.conn, a.logger)
	return nil
}
