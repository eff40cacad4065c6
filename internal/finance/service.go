package finance

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/payroll"
	"golang.org/x/sync/errgroup"
)

type Store interface {
	ListRevenueRecords(ctx context.Context, q domain.RevenueQuery) ([]*domain.RevenueRecord, error)
	ListExpenses(ctx context.Context, q domain.ExpenseQuery) ([]*domain.Expense, error)
	ListDrivers(ctx context.Context) ([]*domain.Driver, error)
	// RevenueSummary 返回全部营收之和以及最早一条营收的时间，没有营收时 earliest 为 nil
	RevenueSummary(ctx context.Context) (total domain.Money, earliest *time.Time, err error)
	CountVehicles(ctx context.Context) (int64, error)
}

const (
	DefaultMonthsBack = 6
	maxMonthsBack     = 36
	// 同时计算的月份数
	monthConcurrency = 4
)

type Service struct {
	store   Store
	formula payroll.Formula
	uplift  domain.Rate
	loc     *time.Location
	now     func() time.Time
}

func NewService(store Store, formula payroll.Formula, uplift domain.Rate, loc *time.Location) *Service {
	return &Service{
		store:   store,
		formula: formula,
		uplift:  uplift,
		loc:     loc,
		now:     time.Now,
	}
}

func (s *Service) allTime(ctx context.Context) (AllTime, error) {
	total, earliest, err := s.store.RevenueSummary(ctx)
	if err != nil {
		return AllTime{}, err
	}
	vehicles, err := s.store.CountVehicles(ctx)
	if err != nil {
		return AllTime{}, err
	}
	return AllTime{TotalRevenue: total, EarliestRevenue: earliest, VehicleCount: vehicles}, nil
}

// figures 计算 [start, end] 内的营收、应付工资和支出，工资按每个有营收的司机分别计算后相加
func (s *Service) figures(ctx context.Context, drivers map[int64]*domain.Driver, start, end domain.Date) (Figures, error) {
	from, to := start.Start(s.loc), end.EndExclusive(s.loc)
	records, err := s.store.ListRevenueRecords(ctx, domain.RevenueQuery{From: &from, To: &to})
	if err != nil {
		return Figures{}, err
	}
	expenses, err := s.store.ListExpenses(ctx, domain.ExpenseQuery{From: &start, To: &end})
	if err != nil {
		return Figures{}, err
	}

	var f Figures
	byDriver := map[int64][]*domain.RevenueRecord{}
	for _, rr := range records {
		f.Revenue += rr.TotalRevenue
		byDriver[rr.DriverID] = append(byDriver[rr.DriverID], rr)
	}
	for driverID, rs := range byDriver {
		driver, ok := drivers[driverID]
		if !ok {
			return Figures{}, domain.NewError(domain.CodeDriverNotFound, "营收记录关联的司机不存在")
		}
		c, err := s.formula.Calculate(driver, rs, start, end, s.loc)
		if err != nil {
			return Figures{}, err
		}
		f.PayrollDue += c.AmountDue
	}
	for _, e := range expenses {
		f.Expenses += e.Amount
	}

	return f, nil
}

func (s *Service) drivers(ctx context.Context) (map[int64]*domain.Driver, error) {
	list, err := s.store.ListDrivers(ctx)
	if err != nil {
		return nil, err
	}
	drivers := make(map[int64]*domain.Driver, len(list))
	for _, d := range list {
		drivers[d.ID] = d
	}
	return drivers, nil
}

func (s *Service) FinanceDetails(ctx context.Context, start, end domain.Date) (*Details, error) {
	if start.IsZero() || end.IsZero() {
		return nil, domain.NewError(domain.CodeValidationError, "必须指定开始日期和结束日期")
	}
	if end.Before(start) {
		return nil, domain.NewFieldError("endDate", domain.CodeInvalid, "结束日期不能早于开始日期")
	}

	drivers, err := s.drivers(ctx)
	if err != nil {
		return nil, err
	}
	f, err := s.figures(ctx, drivers, start, end)
	if err != nil {
		return nil, err
	}
	all, err := s.allTime(ctx)
	if err != nil {
		return nil, err
	}

	d := NewDetails(f, all, s.now())
	return &d, nil
}

// FinanceDetailsTrend 返回最近 monthsBack-1 个月的财务数据，可选附加下个月的预测
func (s *Service) FinanceDetailsTrend(ctx context.Context, monthsBack int, includeProjection bool) ([]TrendEntry, error) {
	if monthsBack == 0 {
		monthsBack = DefaultMonthsBack
	}
	if monthsBack < 2 || monthsBack > maxMonthsBack {
		return nil, domain.NewFieldError("monthsBack", domain.CodeInclusion, "monthsBack 必须在 2 到 36 之间")
	}

	drivers, err := s.drivers(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.allTime(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	months := TrailingMonths(domain.DateOf(now, s.loc), monthsBack)
	history := make([]MonthFigures, len(months))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(monthConcurrency)
	for i, m := range months {
		g.Go(func() error {
			f, err := s.figures(gctx, drivers, m.Start, m.End)
			if err != nil {
				return err
			}
			history[i] = MonthFigures{Month: m, Figures: f}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return BuildTrend(history, all, now, includeProjection, s.uplift), nil
}
