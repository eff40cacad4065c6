package payroll

import (
	"time"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/aggregation"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

// Bracket 是一个档位的两段分成比例：阈值以内按 BaseRate，超出部分按 UpperRate
type Bracket struct {
	BaseRate  domain.Rate
	UpperRate domain.Rate
}

type Formula struct {
	Threshold domain.Money
	Tiers     map[domain.DriverTier]Bracket
}

func NewFormula(cfg *config.Config) Formula {
	upper := domain.RateFromFloat(cfg.Payroll.UpperRate)
	return Formula{
		Threshold: domain.MoneyFromFloat(cfg.Payroll.Threshold),
		Tiers: map[domain.DriverTier]Bracket{
			domain.DriverTier1: {BaseRate: domain.RateFromFloat(cfg.Payroll.Tier1BaseRate), UpperRate: upper},
			domain.DriverTier2: {BaseRate: domain.RateFromFloat(cfg.Payroll.Tier2BaseRate), UpperRate: upper},
		},
	}
}

// DailyDue 计算某一天营收对应的应付工资
func (f Formula) DailyDue(tier domain.DriverTier, revenue domain.Money) (domain.Money, error) {
	b, ok := f.Tiers[tier]
	if !ok {
		return 0, domain.NewError(domain.CodeUnknownTier, "未知的司机档位 "+string(tier))
	}
	if revenue <= 0 {
		return 0, nil
	}

	base := min(revenue, f.Threshold)
	above := max(revenue-f.Threshold, 0)
	return base.MulRate(b.BaseRate) + above.MulRate(b.UpperRate), nil
}

type DayBreakdown struct {
	Date      domain.Date  `json:"date"`
	Revenue   domain.Money `json:"revenue"`
	AmountDue domain.Money `json:"amountDue"`
}

type Calculation struct {
	DriverID       int64             `json:"driverID"`
	Tier           domain.DriverTier `json:"tier"`
	StartDate      domain.Date       `json:"startDate"`
	EndDate        domain.Date       `json:"endDate"`
	TotalRevenue   domain.Money      `json:"totalRevenue"`
	AmountDue      domain.Money      `json:"amountDue"`
	DailyBreakdown []DayBreakdown    `json:"dailyBreakdown"`
}

// Calculate 按天汇总司机在 [start, end] 内的营收，再逐天套用分成公式
func (f Formula) Calculate(driver *domain.Driver, records []*domain.RevenueRecord, start, end domain.Date, loc *time.Location) (*Calculation, error) {
	c := &Calculation{
		DriverID:       driver.ID,
		Tier:           driver.Tier,
		StartDate:      start,
		EndDate:        end,
		DailyBreakdown: []DayBreakdown{},
	}

	w := aggregation.Window{Start: start, End: end}
	days := aggregation.DailyRevenue(records, w, aggregation.RevenueFilter{DriverID: &driver.ID}, loc)
	for _, day := range days {
		due, err := f.DailyDue(driver.Tier, day.Total)
		if err != nil {
			return nil, err
		}
		c.TotalRevenue += day.Total
		c.AmountDue += due
		c.DailyBreakdown = append(c.DailyBreakdown, DayBreakdown{
			Date:      day.Date,
			Revenue:   day.Total,
			AmountDue: due,
		})
	}

	return c, nil
}
