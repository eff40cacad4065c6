package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ShiftStatus 以序号形式持久化，新增状态只能追加在末尾
type ShiftStatus int16

const (
	ShiftStatusScheduled ShiftStatus = iota
	ShiftStatusActive
	ShiftStatusPaused
	ShiftStatusCompleted
	ShiftStatusMissed
)

var shiftStatusNames = [...]string{"scheduled", "active", "paused", "completed", "missed"}

func (s ShiftStatus) Valid() bool {
	return s >= ShiftStatusScheduled && s <= ShiftStatusMissed
}

func (s ShiftStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("ShiftStatus(%d)", int16(s))
	}
	return shiftStatusNames[s]
}

// Open 表示班次正在进行（进行中或暂停中）
func (s ShiftStatus) Open() bool {
	return s == ShiftStatusActive || s == ShiftStatusPaused
}

func (s ShiftStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ShiftStatus) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for i, n := range shiftStatusNames {
		if n == name {
			*s = ShiftStatus(i)
			return nil
		}
	}
	return fmt.Errorf("未知的班次状态 %q", name)
}

// ShiftEventType 以序号形式持久化，clock_out 必须保持为 1
type ShiftEventType int16

const (
	ShiftEventClockIn ShiftEventType = iota
	ShiftEventClockOut
	ShiftEventPause
	ShiftEventResume
	ShiftEventTelemetrySnapshot
)

var shiftEventTypeNames = [...]string{"clock_in", "clock_out", "pause", "resume", "telemetry_snapshot"}

func (t ShiftEventType) Valid() bool {
	return t >= ShiftEventClockIn && t <= ShiftEventTelemetrySnapshot
}

func (t ShiftEventType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("ShiftEventType(%d)", int16(t))
	}
	return shiftEventTypeNames[t]
}

func (t ShiftEventType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ShiftEventType) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for i, n := range shiftEventTypeNames {
		if n == name {
			*t = ShiftEventType(i)
			return nil
		}
	}
	return fmt.Errorf("未知的班次事件类型 %q", name)
}

type ShiftAssignment struct {
	ID                 int64       `json:"id"`
	DriverID           int64       `json:"driverID"`
	VehicleID          int64       `json:"vehicleID"`
	ScheduledStartTime time.Time   `json:"scheduledStartTime"`
	ScheduledEndTime   time.Time   `json:"scheduledEndTime"`
	ActualStartTime    *time.Time  `json:"actualStartTime"`
	ActualEndTime      *time.Time  `json:"actualEndTime"`
	Status             ShiftStatus `json:"status"`
	City               string      `json:"city"`
	RecurrenceRule     *string     `json:"recurrenceRule"`
	CreatedAt          time.Time   `json:"createdAt"`
	Version            int32       `json:"-"`
}

// ShiftEvent 只允许追加，不允许修改或删除
type ShiftEvent struct {
	ID                int64          `json:"id"`
	ShiftAssignmentID int64          `json:"shiftAssignmentID"`
	EventType         ShiftEventType `json:"eventType"`
	Odometer          *float64       `json:"odometer"`
	VehicleRange      *float64       `json:"vehicleRange"`
	GPSLat            *float64       `json:"gpsLat"`
	GPSLon            *float64       `json:"gpsLon"`
	Notes             *string        `json:"notes"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// Telemetry 是司机操作时随事件一起提交的车辆读数
type Telemetry struct {
	Odometer     *float64 `json:"odometer" validate:"omitempty,gte=0"`
	VehicleRange *float64 `json:"vehicleRange" validate:"omitempty,gte=0"`
	GPSLat       *float64 `json:"gpsLat" validate:"omitempty,gte=-90,lte=90"`
	GPSLon       *float64 `json:"gpsLon" validate:"omitempty,gte=-180,lte=180"`
	Notes        *string  `json:"notes" validate:"omitempty,max=1000"`
}
