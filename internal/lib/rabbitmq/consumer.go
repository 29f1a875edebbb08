package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
)

// Message доставленное сообщение.
type Message struct {
	RoutingKey string
	Body       []byte
}

// Handler обрабатывает одно сообщение.
type Handler func(ctx context.Context, msg Message) error

// ConsumerMessage запускает потребителя очереди, обрабатывая не более concurrency сообщений одновременно.
// Успешно обработанное сообщение подтверждается. Сообщение, на котором обработчик вернул ошибку,
// отклоняется без возврата в очередь.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string, concurrency int, handler Handler) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	sem := make(chan struct{}, concurrency)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					if err := handler(ctx, Message{RoutingKey: d.RoutingKey, Body: d.Body}); err != nil {
						log.Error("handler failed, dropping message",
							slog.String("queue", queueName),
							slog.String("routing_key", d.RoutingKey),
							sl.Err(err))
						if nackErr := d.Nack(false, false); nackErr != nil {
							log.Error("failed to nack message", sl.Err(nackErr))
						}
						return
					}
					if ackErr := d.Ack(false); ackErr != nil {
						log.Error("failed to ack message", sl.Err(ackErr))
					}
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
