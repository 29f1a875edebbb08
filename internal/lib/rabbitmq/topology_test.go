package rabbitmq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

func TestTopology(t *testing.T) {
	exchanges := Topology()
	require.Len(t, exchanges, 3)

	bindings := map[string]string{}
	seen := map[string]bool{}
	for _, ex := range exchanges {
		for _, q := range ex.Queues {
			assert.Falsef(t, seen[q.QueueName], "duplicate queue name: %s", q.QueueName)
			seen[q.QueueName] = true
			for _, key := range q.RoutingKeys {
				bindings[ex.Name+"/"+key] = q.QueueName
			}
		}
	}

	assert.Equal(t, QueueBillingEvents, bindings[ExchangeBilling+"/"+models.EventSubscriptionWritten])
	assert.Equal(t, QueueBillingEvents, bindings[ExchangeBilling+"/"+models.EventSubscriptionDeleted])
	assert.Equal(t, QueueBillingEvents, bindings[ExchangeBilling+"/"+models.EventPaymentWritten])
	assert.Equal(t, QueueSignupEvents, bindings[ExchangeSignup+"/"+models.EventUserCreated])
	assert.Equal(t, QueueContactReplied, bindings[ExchangeNotifications+"/"+RoutingKeyContactReplied])
}
