package payroll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

func testFormula() Formula {
	cfg := &config.Config{}
	cfg.Payroll.Threshold = 500
	cfg.Payroll.Tier1BaseRate = 0.15
	cfg.Payroll.Tier2BaseRate = 0.20
	cfg.Payroll.UpperRate = 0.30
	return NewFormula(cfg)
}

func TestDailyDue(t *testing.T) {
	f := testFormula()

	tests := []struct {
		name    string
		tier    domain.DriverTier
		revenue domain.Money
		want    domain.Money
	}{
		{"tier_1 超过阈值", domain.DriverTier1, 100000, 22500},
		{"tier_2 超过阈值", domain.DriverTier2, 100000, 25000},
		{"tier_1 恰好阈值", domain.DriverTier1, 50000, 7500},
		{"tier_1 低于阈值", domain.DriverTier1, 20000, 3000},
		{"没有营收", domain.DriverTier1, 0, 0},
		{"四舍五入到分", domain.DriverTier1, 3, 0},
		{"四舍五入进位", domain.DriverTier1, 10, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.DailyDue(tt.tier, tt.revenue)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDailyDueUnknownTier(t *testing.T) {
	_, err := testFormula().DailyDue("tier_9", 100)

	var errs domain.Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, domain.CodeUnknownTier, errs[0].Code)
}

func TestDailyDueIsMonotonic(t *testing.T) {
	f := testFormula()
	for _, tier := range []domain.DriverTier{domain.DriverTier1, domain.DriverTier2} {
		prev := domain.Money(0)
		for revenue := domain.Money(0); revenue <= 200000; revenue += 7 {
			due, err := f.DailyDue(tier, revenue)
			require.NoError(t, err)
			require.GreaterOrEqual(t, due, prev, "tier=%s revenue=%s", tier, revenue)
			prev = due
		}
	}
}

func TestCalculateSumsPerDay(t *testing.T) {
	f := testFormula()
	driver := &domain.Driver{ID: 1, Tier: domain.DriverTier1}
	records := []*domain.RevenueRecord{
		{DriverID: 1, TotalRevenue: 60000, RealizedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		{DriverID: 1, TotalRevenue: 40000, RealizedAt: time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)},
		{DriverID: 1, TotalRevenue: 20000, RealizedAt: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)},
		{DriverID: 2, TotalRevenue: 99900, RealizedAt: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)},
		{DriverID: 1, TotalRevenue: 50000, RealizedAt: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
	}

	c, err := f.Calculate(driver, records, domain.NewDate(2025, 3, 1), domain.NewDate(2025, 3, 4), time.UTC)
	require.NoError(t, err)

	// 同一天的营收先合并再计算，而不是逐条计算
	require.Len(t, c.DailyBreakdown, 2)
	assert.Equal(t, DayBreakdown{Date: domain.NewDate(2025, 3, 1), Revenue: 100000, AmountDue: 22500}, c.DailyBreakdown[0])
	assert.Equal(t, DayBreakdown{Date: domain.NewDate(2025, 3, 3), Revenue: 20000, AmountDue: 3000}, c.DailyBreakdown[1])
	assert.Equal(t, domain.Money(25500), c.AmountDue)
	assert.Equal(t, domain.Money(120000), c.TotalRevenue)
	assert.Equal(t, domain.NewDate(2025, 3, 1), c.StartDate)
}

func TestCalculateEmptyPeriod(t *testing.T) {
	c, err := testFormula().Calculate(&domain.Driver{ID: 1, Tier: domain.DriverTier2}, nil, domain.NewDate(2025, 3, 1), domain.NewDate(2025, 3, 31), time.UTC)
	require.NoError(t, err)
	assert.Zero(t, c.AmountDue)
	assert.Empty(t, c.DailyBreakdown)
	assert.NotNil(t, c.DailyBreakdown)
}
