package rabbitmq

import "github.com/magabrotheeeer/coaching-platform/internal/models"

// Обменники.
const (
	ExchangeBilling       = "billing"
	ExchangeSignup        = "signup"
	ExchangeNotifications = "notifications"
)

// Очереди.
const (
	QueueBillingEvents  = "billing.events"
	QueueSignupEvents   = "signup.events"
	QueueContactReplied = "notifications.contact_replied"
)

// RoutingKeyContactReplied ключ уведомления об ответе на обращение.
const RoutingKeyContactReplied = "contact.replied"

// QueueConfig очередь и ключи, с которыми она привязана к обменнику.
type QueueConfig struct {
	QueueName   string
	RoutingKeys []string
}

// ExchangeConfig direct-обменник и его очереди.
type ExchangeConfig struct {
	Name   string
	Queues []QueueConfig
}

// BillingTopology события платёжного провайдера и регистрации.
func BillingTopology() []ExchangeConfig {
	return []ExchangeConfig{
		{
			Name: ExchangeBilling,
			Queues: []QueueConfig{{
				QueueName: QueueBillingEvents,
				RoutingKeys: []string{
					models.EventSubscriptionWritten,
					models.EventSubscriptionDeleted,
					models.EventPaymentWritten,
				},
			}},
		},
		{
			Name: ExchangeSignup,
			Queues: []QueueConfig{{
				QueueName:   QueueSignupEvents,
				RoutingKeys: []string{models.EventUserCreated},
			}},
		},
	}
}

// NotificationTopology письма с ответами на обращения.
func NotificationTopology() []ExchangeConfig {
	return []ExchangeConfig{{
		Name: ExchangeNotifications,
		Queues: []QueueConfig{{
			QueueName:   QueueContactReplied,
			RoutingKeys: []string{RoutingKeyContactReplied},
		}},
	}}
}

// Topology полная топология, которую объявляет API перед публикацией.
func Topology() []ExchangeConfig {
	return append(BillingTopology(), NotificationTopology()...)
}
