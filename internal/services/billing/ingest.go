package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v75"

	"github.com/magabrotheeeer/coaching-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// MetadataUserKey ключ metadata объекта провайдера с UID пользователя.
const MetadataUserKey = "user_id"

// ErrNoUser объект провайдера не привязан к пользователю.
var ErrNoUser = errors.New("provider object has no user_id metadata")

// RecordRepository хранилище платёжных подзаписей.
type RecordRepository interface {
	UpsertSubscriptionRecord(ctx context.Context, rec models.SubscriptionRecord) error
	DeleteSubscriptionRecord(ctx context.Context, id string) error
	UpsertPaymentRecord(ctx context.Context, rec models.PaymentRecord) error
}

// Publisher отправляет события в брокер.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, message any) error
}

// Ingestor сохраняет объекты провайдера как подзаписи пользователя
// и публикует событие для Reconciler.
type Ingestor struct {
	repo      RecordRepository
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

// NewIngestor создаёт Ingestor.
func NewIngestor(repo RecordRepository, publisher Publisher, log *slog.Logger) *Ingestor {
	return &Ingestor{
		repo:      repo,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SubscriptionRecordFrom переводит подписку провайдера в подзапись.
func SubscriptionRecordFrom(sub *stripe.Subscription, now time.Time) (models.SubscriptionRecord, error) {
	userUID := sub.Metadata[MetadataUserKey]
	if userUID == "" {
		return models.SubscriptionRecord{}, ErrNoUser
	}
	rec := models.SubscriptionRecord{
		ID:        sub.ID,
		UserUID:   userUID,
		Status:    string(sub.Status),
		UpdatedAt: now,
		Items:     []models.LineItem{},
	}
	if sub.Items == nil {
		return rec, nil
	}
	for _, item := range sub.Items.Data {
		if item == nil || item.Price == nil {
			continue
		}
		rec.Items = append(rec.Items, lineItemFrom(item))
	}
	return rec, nil
}

func lineItemFrom(item *stripe.SubscriptionItem) models.LineItem {
	price := item.Price
	quantity := item.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	li := models.LineItem{
		PriceID:  price.ID,
		Amount:   float64(price.UnitAmount*quantity) / 100,
		Currency: string(price.Currency),
		TierName: price.Metadata["tier"],
	}
	if li.TierName == "" {
		li.TierName = price.Nickname
	}
	if price.Product != nil {
		li.ProductName = price.Product.Name
	}
	if price.Recurring != nil {
		li.Interval = string(price.Recurring.Interval)
	}
	return li
}

// PaymentRecordFrom переводит разовый платёж провайдера в подзапись.
func PaymentRecordFrom(pi *stripe.PaymentIntent) (models.PaymentRecord, error) {
	userUID := pi.Metadata[MetadataUserKey]
	if userUID == "" {
		return models.PaymentRecord{}, ErrNoUser
	}
	return models.PaymentRecord{
		ID:        pi.ID,
		UserUID:   userUID,
		Status:    string(pi.Status),
		Amount:    float64(pi.Amount) / 100,
		Currency:  string(pi.Currency),
		CreatedAt: time.Unix(pi.Created, 0).UTC(),
	}, nil
}

// IngestSubscription сохраняет подзапись подписки и публикует subscription.written.
func (i *Ingestor) IngestSubscription(ctx context.Context, sub *stripe.Subscription) error {
	const op = "billing.IngestSubscription"

	now := i.now()
	rec, err := SubscriptionRecordFrom(sub, now)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, sub.ID, err)
	}
	if err := i.repo.UpsertSubscriptionRecord(ctx, rec); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return i.publish(ctx, models.BillingEvent{
		Kind:       models.EventSubscriptionWritten,
		UserUID:    rec.UserUID,
		RecordID:   rec.ID,
		Status:     rec.Status,
		OccurredAt: now,
	})
}

// DeleteSubscription удаляет подзапись подписки и публикует subscription.deleted.
func (i *Ingestor) DeleteSubscription(ctx context.Context, sub *stripe.Subscription) error {
	const op = "billing.DeleteSubscription"

	userUID := sub.Metadata[MetadataUserKey]
	if userUID == "" {
		return fmt.Errorf("%s: %s: %w", op, sub.ID, ErrNoUser)
	}
	if err := i.repo.DeleteSubscriptionRecord(ctx, sub.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return i.publish(ctx, models.BillingEvent{
		Kind:       models.EventSubscriptionDeleted,
		UserUID:    userUID,
		RecordID:   sub.ID,
		Status:     string(sub.Status),
		OccurredAt: i.now(),
	})
}

// IngestPayment сохраняет подзапись разового платежа и публикует payment.written.
func (i *Ingestor) IngestPayment(ctx context.Context, pi *stripe.PaymentIntent) error {
	const op = "billing.IngestPayment"

	rec, err := PaymentRecordFrom(pi)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, pi.ID, err)
	}
	if err := i.repo.UpsertPaymentRecord(ctx, rec); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return i.publish(ctx, models.BillingEvent{
		Kind:       models.EventPaymentWritten,
		UserUID:    rec.UserUID,
		RecordID:   rec.ID,
		Status:     rec.Status,
		Amount:     rec.Amount,
		OccurredAt: rec.CreatedAt,
	})
}

func (i *Ingestor) publish(ctx context.Context, event models.BillingEvent) error {
	if err := i.publisher.Publish(ctx, rabbitmq.ExchangeBilling, event.Kind, event); err != nil {
		return fmt.Errorf("billing.publish: %w", err)
	}
	i.log.Info("billing event published",
		slog.String("kind", event.Kind),
		slog.String("user_uid", event.UserUID),
		slog.String("record_id", event.RecordID))
	return nil
}
