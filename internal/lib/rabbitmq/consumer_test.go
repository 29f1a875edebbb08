package rabbitmq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConsumerMessage_HandleMessages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	amqpURI, cleanup := brokerURI(ctx, t)
	defer cleanup()

	_, ch := connect(t, amqpURI)

	queueName := "consumer-test"
	_, err := ch.QueueDeclare(queueName, false, false, false, false, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)

	received := make([]string, 0)
	var mu sync.Mutex

	handler := func(_ context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, string(msg.Body))
		wg.Done()
		return nil
	}

	require.NoError(t, ConsumerMessage(ctx, discardLogger(), ch, queueName, 2, handler))

	for _, msg := range []string{"hello", "world"} {
		err := ch.Publish("", queueName, false, false, amqp.Publishing{
			ContentType: "text/plain",
			Body:        []byte(msg),
		})
		require.NoError(t, err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Timeout waiting for messages to be processed")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"hello", "world"}, received)
}

func TestConsumerMessage_HandlerErrorDropsMessage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	amqpURI, cleanup := brokerURI(ctx, t)
	defer cleanup()

	_, ch := connect(t, amqpURI)

	queueName := "drop-test"
	_, err := ch.QueueDeclare(queueName, false, false, false, false, nil)
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		calls int
	)
	handled := make(chan struct{}, 4)
	handler := func(_ context.Context, _ Message) error {
		mu.Lock()
		calls++
		mu.Unlock()
		handled <- struct{}{}
		return errors.New("fail")
	}
	require.NoError(t, ConsumerMessage(ctx, discardLogger(), ch, queueName, 1, handler))

	require.NoError(t, ch.Publish("", queueName, false, false, amqp.Publishing{Body: []byte("bad")}))

	select {
	case <-handled:
	case <-time.After(10 * time.Second):
		t.Fatal("message was not delivered")
	}

	// Повторной доставки быть не должно.
	time.Sleep(time.Second)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}
