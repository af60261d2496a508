// Package sender превращает сообщения очереди уведомлений в письма.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/sl"
	"github.com/magabrotheeeer/streaming-entitlements/internal/lib/smtp"
	"github.com/magabrotheeeer/streaming-entitlements/internal/notifier"
)

// Service отправляет письма по сообщениям из очередей уведомлений.
type Service struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(transport smtp.TransportInterface, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		log:       log,
	}
}

// SendReceipt отправляет квитанцию об успешном списании.
func (s *Service) SendReceipt(body []byte) error {
	var note notifier.ReceiptNote
	if err := json.Unmarshal(body, &note); err != nil {
		s.log.Error("failed to unmarshal receipt message", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject := "Квитанция об оплате подписки"
	bodyText := fmt.Sprintf("Здравствуйте, %s!\n\nС вашей карты списано %s %s за тариф %s.\nДата платежа: %s.\n\nСпасибо, что остаётесь с нами.",
		note.Username, note.Amount, note.Currency, note.TierName,
		note.PaidAt.Format("02.01.2006 15:04"))

	return s.sendEmail([]string{note.Email}, subject, bodyText)
}

// SendPaymentFailed отправляет предупреждение о неуспешном списании.
func (s *Service) SendPaymentFailed(body []byte) error {
	var note notifier.PaymentFailedNote
	if err := json.Unmarshal(body, &note); err != nil {
		s.log.Error("failed to unmarshal payment-failed message", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject := "Не удалось списать оплату подписки"
	bodyText := fmt.Sprintf("Здравствуйте, %s!\n\nНам не удалось списать ежемесячную плату за тариф %s.\nПроверьте привязанную карту: мы повторим попытку при следующем списании.",
		note.Username, note.TierName)

	return s.sendEmail([]string{note.Email}, subject, bodyText)
}

// SendCancellation отправляет подтверждение отмены подписки.
func (s *Service) SendCancellation(body []byte) error {
	var note notifier.CancellationNote
	if err := json.Unmarshal(body, &note); err != nil {
		s.log.Error("failed to unmarshal cancellation message", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject := "Ваша подписка отменена"
	bodyText := fmt.Sprintf("Здравствуйте, %s!\n\nВаша подписка отменена %s, все устройства отключены.\nВы можете вернуться в любой момент, выбрав тариф в личном кабинете.",
		note.Username, note.CancelledAt.Format("02.01.2006"))

	return s.sendEmail([]string{note.Email}, subject, bodyText)
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", s.transport.GetSMTPUser()), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent", slog.Any("to", to), slog.String("subject", subject))
	return nil
}
