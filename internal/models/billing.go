package models

import "time"

// Интервалы тарификации позиций подписки.
const (
	IntervalMonth = "month"
	IntervalYear  = "year"
)

// LineItem позиция подписки: цена за один период тарификации.
type LineItem struct {
	PriceID     string  `json:"price_id"`
	ProductName string  `json:"product_name,omitempty"`
	TierName    string  `json:"tier_name,omitempty"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency,omitempty"`
	Interval    string  `json:"interval"`
}

// SubscriptionRecord запись подписки от платёжного провайдера, хранится под пользователем.
type SubscriptionRecord struct {
	ID        string
	UserUID   string
	Status    string
	Items     []LineItem
	UpdatedAt time.Time
}

// PaymentRecord запись разового платежа от платёжного провайдера.
type PaymentRecord struct {
	ID        string
	UserUID   string
	Status    string
	Amount    float64
	Currency  string
	CreatedAt time.Time
}

// Виды событий биллинга (routing key в RabbitMQ).
const (
	EventSubscriptionWritten = "subscription.written"
	EventSubscriptionDeleted = "subscription.deleted"
	EventPaymentWritten      = "payment.written"
	EventUserCreated         = "user.created"
)

// BillingEvent сообщение о записи или удалении платёжной подзаписи пользователя.
type BillingEvent struct {
	Kind       string    `json:"kind"`
	UserUID    string    `json:"user_uid"`
	RecordID   string    `json:"record_id"`
	Status     string    `json:"status,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SignupEvent сообщение о создании профиля пользователя.
type SignupEvent struct {
	UserUID string `json:"user_uid"`
}

// TierRevenue выручка одного тарифа в MRR.
type TierRevenue struct {
	Name       string  `json:"name"`
	Revenue    float64 `json:"revenue"`
	Percentage float64 `json:"percentage"`
	Items      int     `json:"items"`
}

// RevenueReport сводка ежемесячной регулярной выручки.
type RevenueReport struct {
	TotalMRR            float64       `json:"total_mrr"`
	ActiveSubscriptions int           `json:"active_subscriptions"`
	Tiers               []TierRevenue `json:"tiers"`
}
