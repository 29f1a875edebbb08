// Package sender отправляет письма клиентам по событиям из очереди уведомлений.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"github.com/magabrotheeeer/coaching-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/smtp"
	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// ErrNoRecipient в уведомлении нет адреса получателя.
var ErrNoRecipient = errors.New("notification has no recipient")

// SenderService отправляет письма через SMTP.
type SenderService struct {
	transport smtp.Dialer
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, transport smtp.Dialer) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// HandleMessage обработчик очереди notifications.contact_replied.
func (s *SenderService) HandleMessage(_ context.Context, msg rabbitmq.Message) error {
	if msg.RoutingKey != rabbitmq.RoutingKeyContactReplied {
		s.log.Warn("unexpected routing key", slog.String("routing_key", msg.RoutingKey))
		return nil
	}
	return s.SendReplyNotification(msg.Body)
}

// SendReplyNotification отправляет клиенту ответ сотрудника на его обращение.
func (s *SenderService) SendReplyNotification(body []byte) error {
	var message models.ReplyNotification
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("Failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}
	if strings.TrimSpace(message.To) == "" {
		return ErrNoRecipient
	}

	to := []string{message.To}
	subject := "Ответ на ваше обращение"
	bodyText := fmt.Sprintf("Здравствуйте, %s!\r\n\r\n%s\r\n\r\n%s\r\nНомер обращения: %s",
		message.Name, message.Content, message.SentBy, message.SubmissionID)

	return s.sendEmail(to, subject, bodyText)
}

func headerValue(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.From()
	recipients := make([]string, 0, len(to))
	for _, addr := range to {
		recipients = append(recipients, headerValue(addr))
	}

	msg := strings.Join([]string{
		"From: " + headerValue(from),
		"To: " + strings.Join(recipients, ", "),
		"Subject: " + mime.QEncoding.Encode("UTF-8", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Dial()
	if err != nil {
		s.log.Error("Failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(from); err != nil {
		s.log.Error("Failed to set MAIL FROM", "from", from, sl.Err(err))
		return err
	}

	for _, addr := range recipients {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("Failed to set RCPT TO", "recipient", addr, sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("Failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("Failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("Failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("Failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", recipients)
	return nil
}
