package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

func TestMonthlyAmount(t *testing.T) {
	tests := []struct {
		name string
		item models.LineItem
		want float64
	}{
		{"monthly", models.LineItem{Amount: 199, Interval: models.IntervalMonth}, 199},
		{"yearly", models.LineItem{Amount: 1200, Interval: models.IntervalYear}, 100},
		{"weekly kept as is", models.LineItem{Amount: 30, Interval: "week"}, 30},
		{"no interval", models.LineItem{Amount: 15}, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MonthlyAmount(tt.item), 1e-9)
		})
	}
}

func TestComputeMRR_MonthlyAndYearly(t *testing.T) {
	records := []*models.SubscriptionRecord{
		{ID: "sub_1", Items: []models.LineItem{{Amount: 199, Interval: models.IntervalMonth, TierName: "Pro"}}},
		{ID: "sub_2", Items: []models.LineItem{{Amount: 1200, Interval: models.IntervalYear, TierName: "Basic"}}},
	}

	report := ComputeMRR(records)

	assert.InDelta(t, 299, report.TotalMRR, 1e-9)
	assert.Equal(t, 2, report.ActiveSubscriptions)
	require.Len(t, report.Tiers, 2)
	assert.Equal(t, "Pro", report.Tiers[0].Name)
	assert.InDelta(t, 199, report.Tiers[0].Revenue, 1e-9)
	assert.InDelta(t, 199.0/299*100, report.Tiers[0].Percentage, 1e-9)
	assert.Equal(t, "Basic", report.Tiers[1].Name)
	assert.InDelta(t, 100, report.Tiers[1].Revenue, 1e-9)
}

func TestComputeMRR_TierFallbacks(t *testing.T) {
	records := []*models.SubscriptionRecord{
		{ID: "sub_1", Items: []models.LineItem{
			{Amount: 50, Interval: models.IntervalMonth, TierName: "Gold", ProductName: "Coaching"},
			{Amount: 50, Interval: models.IntervalMonth, ProductName: "Coaching"},
			{Amount: 50, Interval: models.IntervalMonth},
		}},
	}

	report := ComputeMRR(records)

	require.Len(t, report.Tiers, 3)
	names := []string{report.Tiers[0].Name, report.Tiers[1].Name, report.Tiers[2].Name}
	// равная выручка сортируется по имени
	assert.Equal(t, []string{"Coaching", "Gold", UnknownPlan}, names)
	assert.Equal(t, 1, report.ActiveSubscriptions)
}

func TestComputeMRR_Empty(t *testing.T) {
	report := ComputeMRR(nil)
	assert.Zero(t, report.TotalMRR)
	assert.Zero(t, report.ActiveSubscriptions)
	assert.NotNil(t, report.Tiers)
	assert.Empty(t, report.Tiers)

	zero := ComputeMRR([]*models.SubscriptionRecord{
		{ID: "sub_free", Items: []models.LineItem{{Amount: 0, Interval: models.IntervalMonth, TierName: "Free"}}},
	})
	require.Len(t, zero.Tiers, 1)
	assert.Zero(t, zero.Tiers[0].Percentage)
}

func TestRevenueService_Report(t *testing.T) {
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		lister := new(ListerMock)
		lister.On("ListActiveSubscriptionRecords", ctx).Return([]*models.SubscriptionRecord{
			{ID: "sub_1", Items: []models.LineItem{{Amount: 10, Interval: models.IntervalMonth, TierName: "Lite"}}},
		}, nil).Once()

		report, err := NewRevenueService(lister).Report(ctx)
		require.NoError(t, err)
		assert.InDelta(t, 10, report.TotalMRR, 1e-9)
		lister.AssertExpectations(t)
	})

	t.Run("storage error", func(t *testing.T) {
		lister := new(ListerMock)
		lister.On("ListActiveSubscriptionRecords", ctx).Return(nil, errors.New("db down")).Once()

		report, err := NewRevenueService(lister).Report(ctx)
		assert.Error(t, err)
		assert.Nil(t, report)
	})
}
