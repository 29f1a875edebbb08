package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

func TestPublishMessage(t *testing.T) {
	ctx := context.Background()
	amqpURI, cleanup := brokerURI(ctx, t)
	defer cleanup()

	_, ch := connect(t, amqpURI)

	queueName := "publish-test"
	_, err := ch.QueueDeclare(queueName, false, false, false, false, nil)
	require.NoError(t, err)

	type TestMsg struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	t.Run("success publish and consume", func(t *testing.T) {
		msg := TestMsg{ID: 1, Name: "Hello"}
		require.NoError(t, PublishMessage(ch, "", queueName, msg))

		deliveries, err := ch.Consume(queueName, "test-consumer", true, false, false, false, nil)
		require.NoError(t, err)

		select {
		case d := <-deliveries:
			var got TestMsg
			require.NoError(t, json.Unmarshal(d.Body, &got))
			assert.Equal(t, msg, got)
			assert.Equal(t, "application/json", d.ContentType)
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for message")
		}
	})

	t.Run("marshal error", func(t *testing.T) {
		badMsg := struct {
			Ch chan int `json:"ch"`
		}{
			Ch: make(chan int),
		}

		err := PublishMessage(ch, "", queueName, badMsg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rabbitmq.PublishMessage")
	})
}

func TestPublisher_RoutesBillingEvent(t *testing.T) {
	ctx := context.Background()
	amqpURI, cleanup := brokerURI(ctx, t)
	defer cleanup()

	conn, _ := connect(t, amqpURI)
	ch, err := SetupChannel(conn, 0, BillingTopology())
	require.NoError(t, err)
	defer func() { _ = ch.Close() }()

	event := models.BillingEvent{
		Kind:     models.EventSubscriptionWritten,
		UserUID:  "u1",
		RecordID: "sub_1",
		Status:   "active",
	}
	require.NoError(t, NewPublisher(ch).Publish(ctx, ExchangeBilling, event.Kind, event))

	deliveries, err := ch.Consume(QueueBillingEvents, "test-consumer2", true, false, false, false, nil)
	require.NoError(t, err)

	select {
	case d := <-deliveries:
		var got models.BillingEvent
		require.NoError(t, json.Unmarshal(d.Body, &got))
		assert.Equal(t, event.RecordID, got.RecordID)
		assert.Equal(t, models.EventSubscriptionWritten, d.RoutingKey)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message via exchange")
	}
}

func TestPublisher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewPublisher(nil).Publish(ctx, ExchangeBilling, "k", "v")
	assert.ErrorIs(t, err, context.Canceled)
}
