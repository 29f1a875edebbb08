// Package rabbitmq содержит подключение к брокеру, объявление топологии,
// публикацию и потребление сообщений.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Connect подключается к брокеру, повторяя попытки retries раз с паузой delay.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection
	var err error

	for range retries {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel открывает канал с ограничением prefetch и объявляет на нём обменники и очереди.
func SetupChannel(conn *amqp.Connection, prefetch int, exchanges []ExchangeConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
		}
	}

	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(ex.Name, "direct", true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("%s: failed to declare exchange %s: %w", op, ex.Name, err)
		}
		for _, q := range ex.Queues {
			if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
				return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
			}
			for _, key := range q.RoutingKeys {
				if err := ch.QueueBind(q.QueueName, key, ex.Name, false, nil); err != nil {
					return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, key, err)
				}
			}
		}
	}

	return ch, nil
}
