package payroll

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/utils"
)

type Store interface {
	GetDriver(ctx context.Context, id int64) (*domain.Driver, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	ListRevenueRecords(ctx context.Context, q domain.RevenueQuery) ([]*domain.RevenueRecord, error)
	ListPayrollRecords(ctx context.Context, driverID *int64) ([]*domain.PayrollRecord, error)

	// InPayrollTx 在锁住司机记录的事务中执行 fn
	InPayrollTx(ctx context.Context, driverID int64, fn func(tx TxStore) error) error
}

type TxStore interface {
	ListRevenueRecords(ctx context.Context, q domain.RevenueQuery) ([]*domain.RevenueRecord, error)
	PayrollRecordExists(ctx context.Context, driverID int64, start, end domain.Date) (bool, error)
	// SumPayrollPaidWithin 返回支付周期完全落在 [start, end] 内的已支付金额之和
	SumPayrollPaidWithin(ctx context.Context, driverID int64, start, end domain.Date) (domain.Money, error)
	CreatePayrollRecord(ctx context.Context, pr *domain.PayrollRecord) error
}

type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type Notifier interface {
	PublishMail(ctx context.Context, msg domain.MailMessage) error
}

type Validator interface {
	Struct(s any) error
}

type Service struct {
	store    Store
	locker   Locker
	notifier Notifier
	validate Validator
	formula  Formula
	loc      *time.Location
	now      func() time.Time
}

func NewService(store Store, locker Locker, notifier Notifier, validate Validator, formula Formula, loc *time.Location) *Service {
	return &Service{
		store:    store,
		locker:   locker,
		notifier: notifier,
		validate: validate,
		formula:  formula,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *Service) Formula() Formula {
	return s.formula
}

func checkPeriod(start, end domain.Date) error {
	var errs domain.Errors
	if start.IsZero() {
		errs = append(errs, domain.FieldError{Message: "开始日期不能为空", Field: "startDate", Code: domain.CodeBlank})
	}
	if end.IsZero() {
		errs = append(errs, domain.FieldError{Message: "结束日期不能为空", Field: "endDate", Code: domain.CodeBlank})
	}
	if len(errs) == 0 && end.Before(start) {
		errs = append(errs, domain.FieldError{Message: "结束日期不能早于开始日期", Field: "endDate", Code: domain.CodeInvalid})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *Service) driver(ctx context.Context, id int64) (*domain.Driver, error) {
	driver, err := s.store.GetDriver(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.CodeDriverNotFound, "司机不存在")
		}
		return nil, err
	}
	return driver, nil
}

type revenueLister interface {
	ListRevenueRecords(ctx context.Context, q domain.RevenueQuery) ([]*domain.RevenueRecord, error)
}

func (s *Service) calculate(ctx context.Context, store revenueLister, driver *domain.Driver, start, end domain.Date) (*Calculation, error) {
	from, to := start.Start(s.loc), end.EndExclusive(s.loc)
	records, err := store.ListRevenueRecords(ctx, domain.RevenueQuery{
		DriverID: &driver.ID,
		From:     &from,
		To:       &to,
	})
	if err != nil {
		return nil, err
	}
	return s.formula.Calculate(driver, records, start, end, s.loc)
}

// CalculateDriverPayroll 计算司机在 [start, end] 内的应付工资
func (s *Service) CalculateDriverPayroll(ctx context.Context, driverID int64, start, end domain.Date) (*Calculation, error) {
	if err := checkPeriod(start, end); err != nil {
		return nil, err
	}
	driver, err := s.driver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	return s.calculate(ctx, s.store, driver, start, end)
}

type CreateRecordRequest struct {
	DriverID        int64        `json:"driverID" validate:"required"`
	AmountPaid      domain.Money `json:"amountPaid" validate:"gt=0"`
	PeriodStartDate domain.Date  `json:"periodStartDate" validate:"required"`
	PeriodEndDate   domain.Date  `json:"periodEndDate" validate:"required"`
	PaidAt          *time.Time   `json:"paidAt"`
	Notes           *string      `json:"notes" validate:"omitempty,max=1000"`
}

// CreatePayrollRecord 登记一笔工资发放
//
// 同一司机同一周期只能登记一次；本次金额不能超过周期应付金额，
// 且周期内已登记的金额加上本次金额也不能超过应付金额。
// 整个检查在持有司机行锁的事务中进行。
func (s *Service) CreatePayrollRecord(ctx context.Context, paidBy int64, req CreateRecordRequest) (*domain.PayrollRecord, *Calculation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, nil, err
	}
	if req.PeriodEndDate.Before(req.PeriodStartDate) {
		return nil, nil, domain.NewFieldError("periodEndDate", domain.CodeInvalid, "结束日期不能早于开始日期")
	}

	driver, err := s.driver(ctx, req.DriverID)
	if err != nil {
		return nil, nil, err
	}

	release, err := s.locker.Acquire(ctx, fmt.Sprintf("driver:%d:payroll", driver.ID))
	if err != nil {
		return nil, nil, err
	}
	defer release()

	pr := &domain.PayrollRecord{
		DriverID:        driver.ID,
		PaidByUserID:    paidBy,
		AmountPaid:      req.AmountPaid,
		PeriodStartDate: req.PeriodStartDate,
		PeriodEndDate:   req.PeriodEndDate,
		PaidAt:          s.now(),
		Notes:           req.Notes,
	}
	if req.PaidAt != nil {
		pr.PaidAt = *req.PaidAt
	}

	var calc *Calculation
	err = s.store.InPayrollTx(ctx, driver.ID, func(tx TxStore) error {
		exists, err := tx.PayrollRecordExists(ctx, driver.ID, req.PeriodStartDate, req.PeriodEndDate)
		if err != nil {
			return err
		}
		if exists {
			return domain.NewError(domain.CodeDuplicateRecord, "该司机在此周期的工资已经登记过")
		}

		calc, err = s.calculate(ctx, tx, driver, req.PeriodStartDate, req.PeriodEndDate)
		if err != nil {
			return err
		}
		if req.AmountPaid > calc.AmountDue {
			return domain.NewFieldError("amountPaid", domain.CodeLessThanOrEqualTo,
				fmt.Sprintf("支付金额不能超过应付金额 %s", calc.AmountDue))
		}

		paid, err := tx.SumPayrollPaidWithin(ctx, driver.ID, req.PeriodStartDate, req.PeriodEndDate)
		if err != nil {
			return err
		}
		if paid+req.AmountPaid > calc.AmountDue {
			return domain.NewFieldError("amountPaid", domain.CodeLessThanOrEqualTo,
				fmt.Sprintf("该周期已支付 %s，累计金额不能超过应付金额 %s", paid, calc.AmountDue))
		}

		return tx.CreatePayrollRecord(ctx, pr)
	})
	if err != nil {
		return nil, nil, err
	}

	slog.Info("已登记工资发放",
		"payroll_record_id", pr.ID,
		"driver_id", driver.ID,
		"amount_paid", pr.AmountPaid.String(),
		"amount_due", calc.AmountDue.String(),
	)

	s.notifyPaid(ctx, driver, pr, calc)

	return pr, calc, nil
}

// 通知邮件发送失败不影响工资登记
func (s *Service) notifyPaid(ctx context.Context, driver *domain.Driver, pr *domain.PayrollRecord, calc *Calculation) {
	user, err := s.store.GetUserByID(ctx, driver.UserID)
	if err != nil {
		slog.Warn("无法获取司机的用户信息", "driver_id", driver.ID, "error", err)
		return
	}

	msg := domain.MailMessage{
		Type: domain.MailTypePayrollPaid,
		To:   user.Email,
		Data: domain.PayrollPaidMailData{
			FullName:        user.FullName,
			AmountPaid:      pr.AmountPaid.String(),
			AmountDue:       calc.AmountDue.String(),
			PeriodStartDate: pr.PeriodStartDate.String(),
			PeriodEndDate:   pr.PeriodEndDate.String(),
			PaidAt:          pr.PaidAt.In(s.loc).Format(time.DateTime),
		},
	}
	if err := s.notifier.PublishMail(ctx, msg); err != nil {
		slog.Warn("无法投递工资发放邮件", "payroll_record_id", pr.ID, "error", err)
	}
}

type ListRecordsResult struct {
	Records    []*domain.PayrollRecord `json:"records"`
	Pagination utils.Pagination        `json:"pagination"`
}

// ListPayrollRecords 按支付时间倒序返回工资发放记录，driverID 为空时返回全部
func (s *Service) ListPayrollRecords(ctx context.Context, driverID *int64, page utils.Page) (*ListRecordsResult, error) {
	records, err := s.store.ListPayrollRecords(ctx, driverID)
	if err != nil {
		return nil, err
	}

	result := &ListRecordsResult{}
	result.Records, result.Pagination = utils.Paginate(records, page)
	return result, nil
}
