package shift

import (
	"time"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

// Action 是司机对班次发起的操作
type Action int

const (
	ActionClockIn Action = iota
	ActionClockOut
	ActionPause
	ActionResume
	ActionTelemetry
)

func (a Action) String() string {
	return a.EventType().String()
}

// EventType 返回操作成功后追加的事件类型
func (a Action) EventType() domain.ShiftEventType {
	switch a {
	case ActionClockIn:
		return domain.ShiftEventClockIn
	case ActionClockOut:
		return domain.ShiftEventClockOut
	case ActionPause:
		return domain.ShiftEventPause
	case ActionResume:
		return domain.ShiftEventResume
	case ActionTelemetry:
		return domain.ShiftEventTelemetrySnapshot
	default:
		panic("shift: unknown action")
	}
}

// Apply 检查 action 能否作用于班次 sa，可以的话原地修改 sa 的状态并返回待追加的事件
//
// events 为该班次已有的事件，按追加顺序排列。Apply 不做任何 IO，
// 调用方负责在同一个事务中持久化返回的事件和 sa 的新状态。
func Apply(sa *domain.ShiftAssignment, events []domain.ShiftEvent, action Action, telemetry domain.Telemetry, now time.Time) (*domain.ShiftEvent, error) {
	if err := check(sa, events, action); err != nil {
		return nil, err
	}

	// 同一班次的事件时间必须严格递增
	if n := len(events); n > 0 && !now.After(events[n-1].CreatedAt) {
		now = events[n-1].CreatedAt.Add(time.Microsecond)
	}

	switch action {
	case ActionClockIn:
		sa.Status = domain.ShiftStatusActive
		sa.ActualStartTime = &now
	case ActionClockOut:
		sa.Status = domain.ShiftStatusCompleted
		sa.ActualEndTime = &now
	case ActionPause:
		sa.Status = domain.ShiftStatusPaused
	case ActionResume:
		sa.Status = domain.ShiftStatusActive
	case ActionTelemetry:
	}

	return &domain.ShiftEvent{
		ShiftAssignmentID: sa.ID,
		EventType:         action.EventType(),
		Odometer:          telemetry.Odometer,
		VehicleRange:      telemetry.VehicleRange,
		GPSLat:            telemetry.GPSLat,
		GPSLon:            telemetry.GPSLon,
		Notes:             telemetry.Notes,
		CreatedAt:         now,
	}, nil
}

func check(sa *domain.ShiftAssignment, events []domain.ShiftEvent, action Action) error {
	clockedIn, clockedOut := false, false
	for _, e := range events {
		switch e.EventType {
		case domain.ShiftEventClockIn:
			clockedIn = true
		case domain.ShiftEventClockOut:
			clockedOut = true
		}
	}

	switch action {
	case ActionClockIn:
		if clockedOut || sa.Status == domain.ShiftStatusCompleted {
			return domain.NewError(domain.CodeAlreadyClockedOut, "该班次已经签退")
		}
		if clockedIn || sa.Status.Open() {
			return domain.NewError(domain.CodeAlreadyClockedIn, "该班次已经签到")
		}
		if sa.Status == domain.ShiftStatusMissed {
			return domain.NewError(domain.CodeValidationError, "该班次已被标记为缺勤")
		}
		return nil

	case ActionClockOut:
		if clockedOut || sa.Status == domain.ShiftStatusCompleted {
			return domain.NewError(domain.CodeAlreadyClockedOut, "该班次已经签退")
		}
		if !clockedIn || !sa.Status.Open() {
			return domain.NewError(domain.CodeNotClockedIn, "该班次尚未签到")
		}
		return nil

	case ActionPause:
		switch sa.Status {
		case domain.ShiftStatusActive:
			return nil
		case domain.ShiftStatusPaused:
			return domain.NewError(domain.CodeAlreadyPaused, "该班次已经处于暂停状态")
		default:
			return domain.NewError(domain.CodeNoActiveShift, "没有进行中的班次")
		}

	case ActionResume:
		switch sa.Status {
		case domain.ShiftStatusPaused:
			return nil
		case domain.ShiftStatusActive:
			return domain.NewError(domain.CodeNotPaused, "该班次没有暂停")
		default:
			return domain.NewError(domain.CodeNoPausedShift, "没有暂停中的班次")
		}

	case ActionTelemetry:
		if !sa.Status.Open() {
			return domain.NewError(domain.CodeNoOpenShift, "没有进行中的班次")
		}
		return nil

	default:
		panic("shift: unknown action")
	}
}
