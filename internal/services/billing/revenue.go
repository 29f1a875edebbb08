package billing

import (
	"context"
	"sort"

	"github.com/magabrotheeeer/coaching-platform/internal/models"
)

// UnknownPlan имя тарифа для позиций без тарифа и продукта.
const UnknownPlan = "Unknown Plan"

// ActiveSubscriptionLister источник активных подписок.
type ActiveSubscriptionLister interface {
	ListActiveSubscriptionRecords(ctx context.Context) ([]*models.SubscriptionRecord, error)
}

// RevenueService строит отчёт по MRR.
type RevenueService struct {
	repo ActiveSubscriptionLister
}

// NewRevenueService создаёт RevenueService.
func NewRevenueService(repo ActiveSubscriptionLister) *RevenueService {
	return &RevenueService{repo: repo}
}

// Report считает MRR по всем активным подпискам.
func (s *RevenueService) Report(ctx context.Context) (*models.RevenueReport, error) {
	records, err := s.repo.ListActiveSubscriptionRecords(ctx)
	if err != nil {
		return nil, err
	}
	report := ComputeMRR(records)
	return &report, nil
}

// MonthlyAmount приводит сумму позиции к месяцу: годовая делится на 12, остальные без изменений.
func MonthlyAmount(item models.LineItem) float64 {
	if item.Interval == models.IntervalYear {
		return item.Amount / 12
	}
	return item.Amount
}

func tierOf(item models.LineItem) string {
	switch {
	case item.TierName != "":
		return item.TierName
	case item.ProductName != "":
		return item.ProductName
	default:
		return UnknownPlan
	}
}

// ComputeMRR суммирует месячные суммы позиций и группирует их по тарифам.
// Тарифы отсортированы по убыванию выручки, при равенстве по имени.
func ComputeMRR(records []*models.SubscriptionRecord) models.RevenueReport {
	report := models.RevenueReport{Tiers: []models.TierRevenue{}}
	byTier := map[string]*models.TierRevenue{}

	for _, rec := range records {
		report.ActiveSubscriptions++
		for _, item := range rec.Items {
			amount := MonthlyAmount(item)
			report.TotalMRR += amount

			name := tierOf(item)
			tier, ok := byTier[name]
			if !ok {
				tier = &models.TierRevenue{Name: name}
				byTier[name] = tier
			}
			tier.Revenue += amount
			tier.Items++
		}
	}

	for _, tier := range byTier {
		if report.TotalMRR != 0 {
			tier.Percentage = tier.Revenue / report.TotalMRR * 100
		}
		report.Tiers = append(report.Tiers, *tier)
	}
	sort.Slice(report.Tiers, func(i, j int) bool {
		if report.Tiers[i].Revenue != report.Tiers[j].Revenue {
			return report.Tiers[i].Revenue > report.Tiers[j].Revenue
		}
		return report.Tiers[i].Name < report.Tiers[j].Name
	})
	return report
}
