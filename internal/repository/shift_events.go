package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

func (r *Repository) AppendShiftEvent(ctx context.Context, e *domain.ShiftEvent) error {
	query := `
		INSERT INTO shift_events (shift_assignment_id, event_type, odometer, vehicle_range, gps_lat, gps_lon, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{e.ShiftAssignmentID, e.EventType, e.Odometer, e.VehicleRange, e.GPSLat, e.GPSLon, e.Notes, e.CreatedAt}
	return r.db.QueryRowContext(ctx, query, args...).Scan(&e.ID)
}

// ListShiftEvents 按写入顺序返回班次的所有事件
func (r *Repository) ListShiftEvents(ctx context.Context, shiftAssignmentID int64) ([]domain.ShiftEvent, error) {
	query := `
		SELECT id, event_type, odometer, vehicle_range, gps_lat, gps_lon, notes, created_at
		FROM shift_events WHERE shift_assignment_id = $1
		ORDER BY created_at, id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, shiftAssignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.ShiftEvent, 0)
	for rows.Next() {
		e := domain.ShiftEvent{ShiftAssignmentID: shiftAssignmentID}
		dst := []any{&e.ID, &e.EventType, &e.Odometer, &e.VehicleRange, &e.GPSLat, &e.GPSLon, &e.Notes, &e.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
