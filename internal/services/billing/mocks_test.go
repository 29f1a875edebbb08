package billing

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetSubscriptionRecord(ctx context.Context, id string) (*models.SubscriptionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubscriptionRecord), args.Error(1)
}

func (m *UserRepoMock) UpdateSubscriptionState(ctx context.Context, userUID string, status models.PaymentStatus, subscriptionID, providerStatus string, now time.Time) error {
	return m.Called(ctx, userUID, status, subscriptionID, providerStatus, now).Error(0)
}

func (m *UserRepoMock) MarkSubscriptionCancelled(ctx context.Context, userUID string, now time.Time) error {
	return m.Called(ctx, userUID, now).Error(0)
}

func (m *UserRepoMock) RecordSuccessfulPayment(ctx context.Context, userUID, paymentID string, amount float64, paidAt, now time.Time) error {
	return m.Called(ctx, userUID, paymentID, amount, paidAt, now).Error(0)
}

func (m *UserRepoMock) PickLeastLoadedTrainer(ctx context.Context) (*models.Trainer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trainer), args.Error(1)
}

func (m *UserRepoMock) AssignTrainerIfUnset(ctx context.Context, userUID string, trainer *models.Trainer, now time.Time) (bool, error) {
	args := m.Called(ctx, userUID, trainer, now)
	return args.Bool(0), args.Error(1)
}

type RecordRepoMock struct{ mock.Mock }

func (m *RecordRepoMock) UpsertSubscriptionRecord(ctx context.Context, rec models.SubscriptionRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *RecordRepoMock) DeleteSubscriptionRecord(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *RecordRepoMock) UpsertPaymentRecord(ctx context.Context, rec models.PaymentRecord) error {
	return m.Called(ctx, rec).Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, exchange, routingKey string, message any) error {
	return m.Called(ctx, exchange, routingKey, message).Error(0)
}

type ListerMock struct{ mock.Mock }

func (m *ListerMock) ListActiveSubscriptionRecords(ctx context.Context) ([]*models.SubscriptionRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SubscriptionRecord), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }
