package ledger

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

type Store interface {
	GetShiftAssignment(ctx context.Context, id int64) (*domain.ShiftAssignment, error)
	RevenueRecordExists(ctx context.Context, driverID int64, shiftAssignmentID int64, source domain.RevenueSource) (bool, error)
	CreateRevenueRecord(ctx context.Context, rr *domain.RevenueRecord) error
	GetRevenueRecord(ctx context.Context, id int64) (*domain.RevenueRecord, error)
	UpdateRevenueRecordReconciled(ctx context.Context, rr *domain.RevenueRecord) error
	CreateExpense(ctx context.Context, e *domain.Expense) error
}

type Validator interface {
	Struct(s any) error
}

type Service struct {
	store    Store
	validate Validator
	now      func() time.Time
}

func NewService(store Store, validate Validator) *Service {
	return &Service{
		store:    store,
		validate: validate,
		now:      time.Now,
	}
}

type CreateRevenueRequest struct {
	ShiftAssignmentID  *int64               `json:"shiftAssignmentID"`
	VehicleID          *int64               `json:"vehicleID"`
	Source             domain.RevenueSource `json:"source" validate:"required,oneof=bolt uber off_trip"`
	TotalRevenue       domain.Money         `json:"totalRevenue" validate:"gte=0"`
	TotalProfit        domain.Money         `json:"totalProfit"`
	RealizedAt         *time.Time           `json:"realizedAt"`
	EarningsScreenshot *string              `json:"earningsScreenshot" validate:"omitempty,max=1024"`
}

// CreateRevenue 为 driverID 记录一笔营收，driverID 由调用方根据登录身份确定
func (s *Service) CreateRevenue(ctx context.Context, driverID int64, req CreateRevenueRequest) (*domain.RevenueRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	// 平台营收的唯一性以班次为准，没有班次就无法去重
	if req.Source.Platform() && req.ShiftAssignmentID == nil {
		return nil, domain.NewFieldError("shiftAssignmentID", domain.CodeBlank, "平台营收必须关联班次")
	}

	rr := &domain.RevenueRecord{
		DriverID:           driverID,
		ShiftAssignmentID:  req.ShiftAssignmentID,
		VehicleID:          req.VehicleID,
		Source:             req.Source,
		TotalRevenue:       req.TotalRevenue,
		TotalProfit:        req.TotalProfit,
		RealizedAt:         s.now(),
		EarningsScreenshot: req.EarningsScreenshot,
	}
	if req.RealizedAt != nil {
		rr.RealizedAt = *req.RealizedAt
	}

	if req.ShiftAssignmentID != nil {
		sa, err := s.store.GetShiftAssignment(ctx, *req.ShiftAssignmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.NewFieldError("shiftAssignmentID", domain.CodeShiftAssignmentNotFound, "班次不存在")
			}
			return nil, err
		}
		if sa.DriverID != driverID {
			return nil, domain.NewError(domain.CodePermissionDenied, "不能为其他司机的班次记录营收")
		}
		// 没有指定车辆时使用班次的车辆
		if rr.VehicleID == nil {
			vehicleID := sa.VehicleID
			rr.VehicleID = &vehicleID
		}

		if req.Source.Platform() {
			exists, err := s.store.RevenueRecordExists(ctx, driverID, sa.ID, req.Source)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, domain.NewFieldError("source", domain.CodeTaken, "该班次已经记录过此平台的营收")
			}
		}
	}

	if err := s.store.CreateRevenueRecord(ctx, rr); err != nil {
		return nil, err
	}

	slog.Info("已记录营收", "revenue_record_id", rr.ID, "driver_id", driverID, "source", rr.Source, "amount", rr.TotalRevenue.String())
	return rr, nil
}

// ReconcileRevenue 设置营收记录的核对状态
func (s *Service) ReconcileRevenue(ctx context.Context, id int64, reconciled bool) (*domain.RevenueRecord, error) {
	rr, err := s.store.GetRevenueRecord(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.CodeRevenueRecordNotFound, "营收记录不存在")
		}
		return nil, err
	}

	if rr.Reconciled == reconciled {
		return rr, nil
	}

	rr.Reconciled = reconciled
	if err := s.store.UpdateRevenueRecordReconciled(ctx, rr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.CodeValidationError, "营收记录已被修改，请重试")
		}
		return nil, err
	}

	return rr, nil
}

type CreateExpenseRequest struct {
	VehicleID   *int64                 `json:"vehicleID"`
	Amount      domain.Money           `json:"amount" validate:"gt=0"`
	Category    domain.ExpenseCategory `json:"category" validate:"required,oneof=charging maintenance toll insurance other"`
	Description string                 `json:"description" validate:"required_if=Category other,max=1000"`
	Date        domain.Date            `json:"date" validate:"required"`
	ReceiptKey  *string                `json:"receiptKey" validate:"omitempty,max=1024"`
}

func (s *Service) CreateExpense(ctx context.Context, userID int64, req CreateExpenseRequest) (*domain.Expense, error) {
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	e := &domain.Expense{
		UserID:     userID,
		VehicleID:  req.VehicleID,
		Amount:     req.Amount,
		Category:   req.Category,
		Date:       req.Date,
		ReceiptKey: req.ReceiptKey,
	}
	if req.Description != "" {
		e.Description = &req.Description
	}

	if err := s.store.CreateExpense(ctx, e); err != nil {
		return nil, err
	}

	slog.Info("已记录支出", "expense_id", e.ID, "user_id", userID, "category", e.Category, "amount", e.Amount.String())
	return e, nil
}
