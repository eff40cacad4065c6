package shift

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

// Store 是班次服务依赖的持久化接口，由 repository 实现
type Store interface {
	GetDriverByUserID(ctx context.Context, userID int64) (*domain.Driver, error)
	GetDriver(ctx context.Context, id int64) (*domain.Driver, error)
	GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error)
	GetShiftAssignment(ctx context.Context, id int64) (*domain.ShiftAssignment, error)
	ListShiftAssignmentsByDriver(ctx context.Context, driverID int64) ([]*domain.ShiftAssignment, error)
	ListShiftEvents(ctx context.Context, shiftAssignmentID int64) ([]domain.ShiftEvent, error)
	CreateShiftAssignment(ctx context.Context, sa *domain.ShiftAssignment) error

	// InShiftTx 在锁住司机记录的事务中执行 fn，fn 返回错误时回滚
	InShiftTx(ctx context.Context, driverID int64, fn func(tx TxStore) error) error
}

// TxStore 是事务内可用的操作
type TxStore interface {
	GetShiftAssignmentForUpdate(ctx context.Context, id int64) (*domain.ShiftAssignment, error)
	ListOpenShiftAssignments(ctx context.Context, driverID int64) ([]*domain.ShiftAssignment, error)
	FindNextScheduledAssignment(ctx context.Context, driverID int64, vehicleID *int64, now time.Time) (*domain.ShiftAssignment, error)
	ListShiftEvents(ctx context.Context, shiftAssignmentID int64) ([]domain.ShiftEvent, error)
	AppendShiftEvent(ctx context.Context, e *domain.ShiftEvent) error
	UpdateShiftAssignmentStatus(ctx context.Context, sa *domain.ShiftAssignment) error
}

type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type Publisher interface {
	PublishShiftEvent(ctx context.Context, sa *domain.ShiftAssignment, e *domain.ShiftEvent) error
}

type Validator interface {
	Struct(s any) error
}

type Service struct {
	store     Store
	locker    Locker
	publisher Publisher
	validate  Validator
	now       func() time.Time
}

func NewService(store Store, locker Locker, publisher Publisher, validate Validator) *Service {
	return &Service{
		store:     store,
		locker:    locker,
		publisher: publisher,
		validate:  validate,
		now:       time.Now,
	}
}

// Request 描述一次司机操作
// ShiftAssignmentID 为空时按司机当前的班次自动定位，VehicleID 只在签到时用于筛选
type Request struct {
	ShiftAssignmentID *int64 `json:"shiftAssignmentID"`
	VehicleID         *int64 `json:"vehicleID"`
	domain.Telemetry
}

type Result struct {
	ShiftAssignment *domain.ShiftAssignment `json:"shiftAssignment"`
	Event           *domain.ShiftEvent      `json:"event"`
}

func (s *Service) ClockIn(ctx context.Context, userID int64, req Request) (*Result, error) {
	return s.transition(ctx, userID, ActionClockIn, req)
}

func (s *Service) ClockOut(ctx context.Context, userID int64, req Request) (*Result, error) {
	return s.transition(ctx, userID, ActionClockOut, req)
}

func (s *Service) Pause(ctx context.Context, userID int64, req Request) (*Result, error) {
	return s.transition(ctx, userID, ActionPause, req)
}

func (s *Service) Resume(ctx context.Context, userID int64, req Request) (*Result, error) {
	return s.transition(ctx, userID, ActionResume, req)
}

// RecordTelemetry 给进行中的班次追加一条读数快照，不改变班次状态
func (s *Service) RecordTelemetry(ctx context.Context, userID int64, req Request) (*Result, error) {
	return s.transition(ctx, userID, ActionTelemetry, req)
}

func (s *Service) transition(ctx context.Context, userID int64, action Action, req Request) (*Result, error) {
	// 先校验读数，任何字段不合法都不会产生事件
	if err := s.validate.Struct(req.Telemetry); err != nil {
		return nil, err
	}

	driver, err := s.driverOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, fmt.Sprintf("driver:%d:shift", driver.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	var result Result
	err = s.store.InShiftTx(ctx, driver.ID, func(tx TxStore) error {
		sa, err := s.resolve(ctx, tx, driver, action, req)
		if err != nil {
			return err
		}

		events, err := tx.ListShiftEvents(ctx, sa.ID)
		if err != nil {
			return err
		}

		event, err := Apply(sa, events, action, req.Telemetry, s.now())
		if err != nil {
			return err
		}

		if err := tx.AppendShiftEvent(ctx, event); err != nil {
			return err
		}
		if action != ActionTelemetry {
			if err := tx.UpdateShiftAssignmentStatus(ctx, sa); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					// 版本号不一致说明有并发的操作先提交了
					return domain.NewError(domain.CodeValidationError, "班次状态已被修改，请重试")
				}
				return err
			}
		}

		result.ShiftAssignment = sa
		result.Event = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("班次事件已记录",
		"driver_id", driver.ID,
		"shift_assignment_id", result.ShiftAssignment.ID,
		"event", result.Event.EventType.String(),
		"status", result.ShiftAssignment.Status.String(),
	)

	if err := s.publisher.PublishShiftEvent(ctx, result.ShiftAssignment, result.Event); err != nil {
		slog.Warn("无法发布班次事件", "shift_assignment_id", result.ShiftAssignment.ID, "error", err)
	}

	return &result, nil
}

func (s *Service) driverOf(ctx context.Context, userID int64) (*domain.Driver, error) {
	driver, err := s.store.GetDriverByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.CodeNoDriverProfile, "当前用户没有司机档案")
		}
		return nil, err
	}
	return driver, nil
}

func (s *Service) resolve(ctx context.Context, tx TxStore, driver *domain.Driver, action Action, req Request) (*domain.ShiftAssignment, error) {
	open, err := tx.ListOpenShiftAssignments(ctx, driver.ID)
	if err != nil {
		return nil, err
	}
	if len(open) > 1 {
		slog.Error("司机同时存在多个进行中的班次", "driver_id", driver.ID, "count", len(open))
		return nil, domain.NewError(domain.CodeAmbiguousActiveShift, "存在多个进行中的班次")
	}

	if req.ShiftAssignmentID != nil {
		sa, err := tx.GetShiftAssignmentForUpdate(ctx, *req.ShiftAssignmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.NewFieldError("shiftAssignmentID", domain.CodeShiftAssignmentNotFound, "班次不存在")
			}
			return nil, err
		}
		if sa.DriverID != driver.ID {
			return nil, domain.NewError(domain.CodePermissionDenied, "不能操作其他司机的班次")
		}
		if action == ActionClockIn && len(open) == 1 && open[0].ID != sa.ID {
			return nil, domain.NewError(domain.CodeAlreadyClockedIn, "已经有进行中的班次")
		}
		return sa, nil
	}

	if action == ActionClockIn {
		if len(open) == 1 {
			return nil, domain.NewError(domain.CodeAlreadyClockedIn, "已经有进行中的班次")
		}
		sa, err := tx.FindNextScheduledAssignment(ctx, driver.ID, req.VehicleID, s.now())
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.NewError(domain.CodeShiftAssignmentNotFound, "没有可以签到的班次")
			}
			return nil, err
		}
		return sa, nil
	}

	if len(open) == 0 {
		switch action {
		case ActionClockOut:
			return nil, domain.NewError(domain.CodeShiftAssignmentNotFound, "没有可以签退的班次")
		case ActionPause:
			return nil, domain.NewError(domain.CodeNoActiveShift, "没有进行中的班次")
		case ActionResume:
			return nil, domain.NewError(domain.CodeNoPausedShift, "没有暂停中的班次")
		default:
			return nil, domain.NewError(domain.CodeNoOpenShift, "没有进行中的班次")
		}
	}

	return open[0], nil
}

// ListAssignments 返回当前司机的所有班次，按计划开始时间倒序
func (s *Service) ListAssignments(ctx context.Context, userID int64) ([]*domain.ShiftAssignment, error) {
	driver, err := s.driverOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListShiftAssignmentsByDriver(ctx, driver.ID)
}

// ListEvents 返回班次完整的事件记录，司机只能查看自己的班次
func (s *Service) ListEvents(ctx context.Context, userID int64, role domain.Role, shiftAssignmentID int64) ([]domain.ShiftEvent, error) {
	sa, err := s.store.GetShiftAssignment(ctx, shiftAssignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.CodeShiftAssignmentNotFound, "班次不存在")
		}
		return nil, err
	}

	if role == domain.RoleDriver {
		driver, err := s.driverOf(ctx, userID)
		if err != nil {
			return nil, err
		}
		if sa.DriverID != driver.ID {
			return nil, domain.NewError(domain.CodePermissionDenied, "不能查看其他司机的班次")
		}
	}

	return s.store.ListShiftEvents(ctx, sa.ID)
}

type CreateAssignmentRequest struct {
	DriverID           int64     `json:"driverID" validate:"required"`
	VehicleID          int64     `json:"vehicleID" validate:"required"`
	ScheduledStartTime time.Time `json:"scheduledStartTime" validate:"required"`
	ScheduledEndTime   time.Time `json:"scheduledEndTime" validate:"required,gtfield=ScheduledStartTime"`
	City               string    `json:"city" validate:"max=100"`
	RecurrenceRule     *string   `json:"recurrenceRule" validate:"omitempty,max=255"`
}

func (s *Service) CreateAssignment(ctx context.Context, req CreateAssignmentRequest) (*domain.ShiftAssignment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	driver, err := s.store.GetDriver(ctx, req.DriverID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewFieldError("driverID", domain.CodeDriverNotFound, "司机不存在")
		}
		return nil, err
	}
	vehicle, err := s.store.GetVehicle(ctx, req.VehicleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewFieldError("vehicleID", domain.CodeInvalid, "车辆不存在")
		}
		return nil, err
	}

	city := req.City
	if city == "" {
		city = vehicle.City
	}

	sa := &domain.ShiftAssignment{
		DriverID:           driver.ID,
		VehicleID:          vehicle.ID,
		ScheduledStartTime: req.ScheduledStartTime,
		ScheduledEndTime:   req.ScheduledEndTime,
		Status:             domain.ShiftStatusScheduled,
		City:               city,
		RecurrenceRule:     req.RecurrenceRule,
	}
	if err := s.store.CreateShiftAssignment(ctx, sa); err != nil {
		return nil, err
	}

	slog.Info("已创建班次", "shift_assignment_id", sa.ID, "driver_id", sa.DriverID, "vehicle_id", sa.VehicleID)
	return sa, nil
}
