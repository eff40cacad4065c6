package shift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func codeOf(t *testing.T, err error) domain.ErrorCode {
	t.Helper()
	var errs domain.Errors
	require.ErrorAs(t, err, &errs)
	require.NotEmpty(t, errs)
	return errs[0].Code
}

func TestApplyTransitions(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.ShiftStatus
		events  []domain.ShiftEventType
		action  Action
		want    domain.ShiftStatus
		errCode domain.ErrorCode
	}{
		{"签到", domain.ShiftStatusScheduled, nil, ActionClockIn, domain.ShiftStatusActive, ""},
		{"重复签到", domain.ShiftStatusActive, []domain.ShiftEventType{domain.ShiftEventClockIn}, ActionClockIn, 0, domain.CodeAlreadyClockedIn},
		{"签退后签到", domain.ShiftStatusCompleted, []domain.ShiftEventType{domain.ShiftEventClockIn, domain.ShiftEventClockOut}, ActionClockIn, 0, domain.CodeAlreadyClockedOut},
		{"缺勤后签到", domain.ShiftStatusMissed, nil, ActionClockIn, 0, domain.CodeValidationError},
		{"签到前签退", domain.ShiftStatusScheduled, nil, ActionClockOut, 0, domain.CodeNotClockedIn},
		{"签退", domain.ShiftStatusActive, []domain.ShiftEventType{domain.ShiftEventClockIn}, ActionClockOut, domain.ShiftStatusCompleted, ""},
		{"暂停中签退", domain.ShiftStatusPaused, []domain.ShiftEventType{domain.ShiftEventClockIn, domain.ShiftEventPause}, ActionClockOut, domain.ShiftStatusCompleted, ""},
		{"重复签退", domain.ShiftStatusCompleted, []domain.ShiftEventType{domain.ShiftEventClockIn, domain.ShiftEventClockOut}, ActionClockOut, 0, domain.CodeAlreadyClockedOut},
		{"暂停", domain.ShiftStatusActive, []domain.ShiftEventType{domain.ShiftEventClockIn}, ActionPause, domain.ShiftStatusPaused, ""},
		{"重复暂停", domain.ShiftStatusPaused, []domain.ShiftEventType{domain.ShiftEventClockIn, domain.ShiftEventPause}, ActionPause, 0, domain.CodeAlreadyPaused},
		{"未开始时暂停", domain.ShiftStatusScheduled, nil, ActionPause, 0, domain.CodeNoActiveShift},
		{"恢复", domain.ShiftStatusPaused, []domain.ShiftEventType{domain.ShiftEventClockIn, domain.ShiftEventPause}, ActionResume, domain.ShiftStatusActive, ""},
		{"未暂停时恢复", domain.ShiftStatusActive, []domain.ShiftEventType{domain.ShiftEventClockIn}, ActionResume, 0, domain.CodeNotPaused},
		{"结束后恢复", domain.ShiftStatusCompleted, []domain.ShiftEventType{domain.ShiftEventClockIn, domain.ShiftEventClockOut}, ActionResume, 0, domain.CodeNoPausedShift},
		{"读数快照", domain.ShiftStatusPaused, []domain.ShiftEventType{domain.ShiftEventClockIn, domain.ShiftEventPause}, ActionTelemetry, domain.ShiftStatusPaused, ""},
		{"未开始时读数快照", domain.ShiftStatusScheduled, nil, ActionTelemetry, 0, domain.CodeNoOpenShift},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sa := &domain.ShiftAssignment{ID: 1, DriverID: 1, Status: tt.status}
			events := make([]domain.ShiftEvent, len(tt.events))
			for i, et := range tt.events {
				events[i] = domain.ShiftEvent{ShiftAssignmentID: 1, EventType: et, CreatedAt: t0.Add(time.Duration(i) * time.Minute)}
			}

			event, err := Apply(sa, events, tt.action, domain.Telemetry{}, t0.Add(time.Hour))
			if tt.errCode != "" {
				assert.Nil(t, event)
				assert.Equal(t, tt.errCode, codeOf(t, err))
				assert.Equal(t, tt.status, sa.Status, "失败的操作不能修改状态")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, sa.Status)
			assert.Equal(t, tt.action.EventType(), event.EventType)
			assert.Equal(t, sa.ID, event.ShiftAssignmentID)
		})
	}
}

func TestApplySetsActualTimes(t *testing.T) {
	sa := &domain.ShiftAssignment{ID: 7, Status: domain.ShiftStatusScheduled}

	in, err := Apply(sa, nil, ActionClockIn, domain.Telemetry{}, t0)
	require.NoError(t, err)
	require.NotNil(t, sa.ActualStartTime)
	assert.Equal(t, in.CreatedAt, *sa.ActualStartTime)
	assert.Nil(t, sa.ActualEndTime)

	out, err := Apply(sa, []domain.ShiftEvent{*in}, ActionClockOut, domain.Telemetry{}, t0.Add(8*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, sa.ActualEndTime)
	assert.Equal(t, out.CreatedAt, *sa.ActualEndTime)
}

func TestApplyKeepsEventTimeIncreasing(t *testing.T) {
	sa := &domain.ShiftAssignment{ID: 1, Status: domain.ShiftStatusActive}
	events := []domain.ShiftEvent{{EventType: domain.ShiftEventClockIn, CreatedAt: t0}}

	// 时钟回拨
	event, err := Apply(sa, events, ActionPause, domain.Telemetry{}, t0.Add(-time.Second))
	require.NoError(t, err)
	assert.True(t, event.CreatedAt.After(t0))
}

func TestApplyCopiesTelemetry(t *testing.T) {
	sa := &domain.ShiftAssignment{ID: 1, Status: domain.ShiftStatusScheduled}
	telemetry := domain.Telemetry{
		Odometer: ptr(50000.0),
		GPSLat:   ptr(23.1),
		GPSLon:   ptr(113.3),
		Notes:    ptr("出车"),
	}

	event, err := Apply(sa, nil, ActionClockIn, telemetry, t0)
	require.NoError(t, err)
	assert.Equal(t, 50000.0, *event.Odometer)
	assert.Nil(t, event.VehicleRange)
	assert.Equal(t, 23.1, *event.GPSLat)
	assert.Equal(t, 113.3, *event.GPSLon)
	assert.Equal(t, "出车", *event.Notes)
}

func TestPauseResumeNeverCompletes(t *testing.T) {
	sa := &domain.ShiftAssignment{ID: 1, Status: domain.ShiftStatusScheduled}
	var events []domain.ShiftEvent

	now := t0
	for _, action := range []Action{ActionClockIn, ActionPause, ActionResume, ActionPause, ActionResume} {
		now = now.Add(time.Minute)
		event, err := Apply(sa, events, action, domain.Telemetry{}, now)
		require.NoError(t, err)
		events = append(events, *event)
		assert.NotEqual(t, domain.ShiftStatusCompleted, sa.Status)
	}
	assert.Equal(t, domain.ShiftStatusActive, sa.Status)
	assert.Nil(t, sa.ActualEndTime)
}
