package finance

import (
	"time"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

const monthLabelLayout = "Jan 2006"

// Figures 是一个时间窗口内的三项基础数据
type Figures struct {
	Revenue    domain.Money `json:"revenue"`
	PayrollDue domain.Money `json:"payrollDue"`
	Expenses   domain.Money `json:"expenses"`
}

func (f Figures) Earnings() domain.Money {
	return f.Revenue - f.PayrollDue - f.Expenses
}

type Details struct {
	TotalRevenue           domain.Money `json:"totalRevenue"`
	TotalPayrollDue        domain.Money `json:"totalPayrollDue"`
	TotalExpenses          domain.Money `json:"totalExpenses"`
	Earnings               domain.Money `json:"earnings"`
	TotalRevenueAllTime    domain.Money `json:"totalRevenueAllTime"`
	AverageRevenuePerMonth domain.Money `json:"averageRevenuePerMonth"`
	AverageRevenuePerCar   domain.Money `json:"averageRevenuePerCar"`
}

// AllTime 是与查询窗口无关的全量统计
type AllTime struct {
	TotalRevenue    domain.Money
	EarliestRevenue *time.Time
	VehicleCount    int64
}

func NewDetails(f Figures, all AllTime, now time.Time) Details {
	d := Details{
		TotalRevenue:        f.Revenue,
		TotalPayrollDue:     f.PayrollDue,
		TotalExpenses:       f.Expenses,
		Earnings:            f.Earnings(),
		TotalRevenueAllTime: all.TotalRevenue,
	}
	if all.EarliestRevenue != nil {
		d.AverageRevenuePerMonth = all.TotalRevenue.DivRound(MonthsElapsed(*all.EarliestRevenue, now))
	}
	if all.VehicleCount > 0 {
		d.AverageRevenuePerCar = all.TotalRevenue.DivRound(all.VehicleCount)
	}
	return d
}

// MonthsElapsed 返回从 earliest 到 now 经过的自然月数，不足一个月按一个月计，至少为 1
func MonthsElapsed(earliest, now time.Time) int64 {
	now = now.In(earliest.Location())
	months := int64(now.Year()-earliest.Year())*12 + int64(now.Month()-earliest.Month())
	// 本月还有剩余部分时向上取整
	if earliest.AddDate(0, int(months), 0).Before(now) {
		months++
	}
	return max(months, 1)
}

// Project 用历史各月的平均值预测下一个月，营收额外乘以 uplift
func Project(history []Figures, uplift domain.Rate) Figures {
	if len(history) == 0 {
		return Figures{}
	}

	var sum Figures
	for _, f := range history {
		sum.Revenue += f.Revenue
		sum.PayrollDue += f.PayrollDue
		sum.Expenses += f.Expenses
	}

	n := int64(len(history))
	return Figures{
		Revenue:    sum.Revenue.DivRound(n).MulRate(uplift),
		PayrollDue: sum.PayrollDue.DivRound(n),
		Expenses:   sum.Expenses.DivRound(n),
	}
}

type Month struct {
	Start domain.Date
	End   domain.Date
}

func (m Month) Label() string {
	return m.Start.Format(monthLabelLayout)
}

// TrailingMonths 返回包含 today 所在月在内的最近 n 个自然月，按时间正序
func TrailingMonths(today domain.Date, n int) []Month {
	first := domain.NewDate(today.Year(), today.Month(), 1)
	months := make([]Month, n)
	for i := 0; i < n; i++ {
		start := domain.Date{Time: first.AddDate(0, i-n+1, 0)}
		months[i] = Month{Start: start, End: domain.Date{Time: start.AddDate(0, 1, -1)}}
	}
	return months
}

type TrendEntry struct {
	Month          string      `json:"month"`
	StartDate      domain.Date `json:"startDate"`
	EndDate        domain.Date `json:"endDate"`
	IsProjection   bool        `json:"isProjection"`
	FinanceDetails Details     `json:"financeDetails"`
}

type MonthFigures struct {
	Month   Month
	Figures Figures
}

// BuildTrend 丢弃最旧的一个月（只用于计算平均值），按时间正序返回其余月份，
// includeProjection 为真时在末尾追加下个月的预测
func BuildTrend(history []MonthFigures, all AllTime, now time.Time, includeProjection bool, uplift domain.Rate) []TrendEntry {
	entries := []TrendEntry{}
	if len(history) == 0 {
		return entries
	}

	for _, mf := range history[1:] {
		entries = append(entries, TrendEntry{
			Month:          mf.Month.Label(),
			StartDate:      mf.Month.Start,
			EndDate:        mf.Month.End,
			FinanceDetails: NewDetails(mf.Figures, all, now),
		})
	}

	if includeProjection {
		figures := make([]Figures, len(history))
		for i, mf := range history {
			figures[i] = mf.Figures
		}

		last := history[len(history)-1].Month
		next := domain.Date{Time: last.Start.AddDate(0, 1, 0)}
		month := Month{Start: next, End: domain.Date{Time: next.AddDate(0, 1, -1)}}
		entries = append(entries, TrendEntry{
			Month:          month.Label() + " (Next)",
			StartDate:      month.Start,
			EndDate:        month.End,
			IsProjection:   true,
			FinanceDetails: NewDetails(Project(figures, uplift), all, now),
		})
	}

	return entries
}
