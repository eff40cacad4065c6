package aggregation

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/utils"
)

type Store interface {
	ListRevenueRecords(ctx context.Context, q domain.RevenueQuery) ([]*domain.RevenueRecord, error)
	ListExpenses(ctx context.Context, q domain.ExpenseQuery) ([]*domain.Expense, error)
}

// Service 从存储中按窗口读取记录后在内存中分组
type Service struct {
	store Store
	loc   *time.Location
	now   func() time.Time
}

func NewService(store Store, loc *time.Location) *Service {
	return &Service{
		store: store,
		loc:   loc,
		now:   time.Now,
	}
}

type Query struct {
	StartDate *domain.Date
	EndDate   *domain.Date
	GroupBy   GroupBy
	Page      utils.Page
}

func (s *Service) window(q Query) Window {
	return NewWindow(q.StartDate, q.EndDate, domain.DateOf(s.now(), s.loc))
}

func (s *Service) GroupRevenue(ctx context.Context, q Query, f RevenueFilter) (*RevenueReport, error) {
	errs := validateQuery(q)
	if f.Source != nil && !f.Source.Valid() {
		errs = append(errs, domain.FieldError{Message: "营收来源只能是 bolt、uber 或 off_trip", Field: "source", Code: domain.CodeInclusion})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	by := q.GroupBy
	if by == "" {
		by = GroupByDriver
	}

	w := s.window(q)
	from, to := w.Start.Start(s.loc), w.End.EndExclusive(s.loc)
	records, err := s.store.ListRevenueRecords(ctx, domain.RevenueQuery{
		DriverID:  f.DriverID,
		VehicleID: f.VehicleID,
		Source:    f.Source,
		From:      &from,
		To:        &to,
	})
	if err != nil {
		return nil, err
	}

	report := GroupRevenue(records, w, f, by, q.Page, s.loc)
	return &report, nil
}

func (s *Service) GroupExpenses(ctx context.Context, q Query, f ExpenseFilter) (*ExpenseReport, error) {
	errs := validateQuery(q)
	if f.Category != nil && !f.Category.Valid() {
		errs = append(errs, domain.FieldError{Message: "支出类别不在可选范围内", Field: "category", Code: domain.CodeInclusion})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	by := q.GroupBy
	if by == "" {
		by = GroupByVehicle
	}

	w := s.window(q)
	expenses, err := s.store.ListExpenses(ctx, domain.ExpenseQuery{
		UserID:    f.UserID,
		VehicleID: f.VehicleID,
		Category:  f.Category,
		From:      &w.Start,
		To:        &w.End,
	})
	if err != nil {
		return nil, err
	}

	report := GroupExpenses(expenses, w, f, by, q.Page)
	return &report, nil
}

func validateQuery(q Query) domain.Errors {
	var errs domain.Errors
	if q.GroupBy != "" && !q.GroupBy.Valid() {
		errs = append(errs, domain.FieldError{Message: "分组方式只能是 driver 或 vehicle", Field: "groupBy", Code: domain.CodeInclusion})
	}
	if q.StartDate != nil && q.EndDate != nil && q.EndDate.Before(*q.StartDate) {
		errs = append(errs, domain.FieldError{Message: "结束日期不能早于开始日期", Field: "endDate", Code: domain.CodeInvalid})
	}
	return errs
}
