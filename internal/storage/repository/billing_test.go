package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

func TestStorage_SubscriptionRecords(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	userUID := uuid.NewString()
	now := time.Now().UTC()

	monthly := models.SubscriptionRecord{
		ID: "sub_monthly", UserUID: userUID, Status: "active", UpdatedAt: now,
		Items: []models.LineItem{{PriceID: "price_m", TierName: "Pro", Amount: 199, Interval: models.IntervalMonth}},
	}
	require.NoError(t, storage.UpsertSubscriptionRecord(ctx, monthly))
	require.NoError(t, storage.UpsertSubscriptionRecord(ctx, models.SubscriptionRecord{
		ID: "sub_pending", UserUID: userUID, Status: "incomplete", UpdatedAt: now,
	}))

	got, err := storage.ListActiveSubscriptionRecords(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, monthly.Items, got[0].Items)

	stored, err := storage.GetSubscriptionRecord(ctx, "sub_monthly")
	require.NoError(t, err)
	assert.Equal(t, userUID, stored.UserUID)
	assert.Equal(t, "active", stored.Status)
	assert.Equal(t, monthly.Items, stored.Items)

	monthly.Status = "past_due"
	require.NoError(t, storage.UpsertSubscriptionRecord(ctx, monthly))
	got, err = storage.ListActiveSubscriptionRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, storage.DeleteSubscriptionRecord(ctx, "sub_monthly"))
	require.NoError(t, storage.DeleteSubscriptionRecord(ctx, "sub_monthly"))
	_, err = storage.GetSubscriptionRecord(ctx, "sub_monthly")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, storage.UpsertPaymentRecord(ctx, models.PaymentRecord{
		ID: "pi_1", UserUID: userUID, Status: "succeeded", Amount: 20, Currency: "usd", CreatedAt: now,
	}))
	assert.Equal(t, 1, NewTestVerification(storage).CountRows(t, "user_payments", "id", "pi_1"))
}
