package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/shift"
)

const shiftAssignmentColumns = `
	id, driver_id, vehicle_id, scheduled_start_time, scheduled_end_time,
	actual_start_time, actual_end_time, status, city, recurrence_rule, created_at, version
`

func scanShiftAssignment(row interface{ Scan(...any) error }) (*domain.ShiftAssignment, error) {
	sa := &domain.ShiftAssignment{}
	dst := []any{
		&sa.ID, &sa.DriverID, &sa.VehicleID, &sa.ScheduledStartTime, &sa.ScheduledEndTime,
		&sa.ActualStartTime, &sa.ActualEndTime, &sa.Status, &sa.City, &sa.RecurrenceRule, &sa.CreatedAt, &sa.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return sa, nil
}

func (r *Repository) queryShiftAssignments(ctx context.Context, query string, args ...any) ([]*domain.ShiftAssignment, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]*domain.ShiftAssignment, 0)
	for rows.Next() {
		sa, err := scanShiftAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, sa)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *Repository) CreateShiftAssignment(ctx context.Context, sa *domain.ShiftAssignment) error {
	query := `
		INSERT INTO shift_assignments (driver_id, vehicle_id, scheduled_start_time, scheduled_end_time, status, city, recurrence_rule)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{sa.DriverID, sa.VehicleID, sa.ScheduledStartTime, sa.ScheduledEndTime, sa.Status, sa.City, sa.RecurrenceRule}
	return r.db.QueryRowContext(ctx, query, args...).Scan(&sa.ID, &sa.CreatedAt, &sa.Version)
}

func (r *Repository) GetShiftAssignment(ctx context.Context, id int64) (*domain.ShiftAssignment, error) {
	query := `SELECT ` + shiftAssignmentColumns + ` FROM shift_assignments WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return scanShiftAssignment(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) GetShiftAssignmentForUpdate(ctx context.Context, id int64) (*domain.ShiftAssignment, error) {
	query := `SELECT ` + shiftAssignmentColumns + ` FROM shift_assignments WHERE id = $1 FOR UPDATE`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return scanShiftAssignment(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) ListShiftAssignmentsByDriver(ctx context.Context, driverID int64) ([]*domain.ShiftAssignment, error) {
	query := `SELECT ` + shiftAssignmentColumns + ` FROM shift_assignments WHERE driver_id = $1 ORDER BY scheduled_start_time DESC, id DESC`
	return r.queryShiftAssignments(ctx, query, driverID)
}

// ListOpenShiftAssignments 锁住并返回司机所有进行中或暂停中的班次
func (r *Repository) ListOpenShiftAssignments(ctx context.Context, driverID int64) ([]*domain.ShiftAssignment, error) {
	query := `
		SELECT ` + shiftAssignmentColumns + ` FROM shift_assignments
		WHERE driver_id = $1 AND status IN ($2, $3)
		ORDER BY id
		FOR UPDATE
	`
	return r.queryShiftAssignments(ctx, query, driverID, domain.ShiftStatusActive, domain.ShiftStatusPaused)
}

// FindNextScheduledAssignment 返回尚未结束的、计划开始时间最早的待签到班次
func (r *Repository) FindNextScheduledAssignment(ctx context.Context, driverID int64, vehicleID *int64, now time.Time) (*domain.ShiftAssignment, error) {
	query := `
		SELECT ` + shiftAssignmentColumns + ` FROM shift_assignments
		WHERE driver_id = $1
			AND status = $2
			AND scheduled_end_time > $3
			AND ($4::BIGINT IS NULL OR vehicle_id = $4)
		ORDER BY scheduled_start_time, id
		LIMIT 1
		FOR UPDATE
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return scanShiftAssignment(r.db.QueryRowContext(ctx, query, driverID, domain.ShiftStatusScheduled, now, vehicleID))
}

// UpdateShiftAssignmentStatus 使用乐观锁更新班次状态，版本不一致时返回 sql.ErrNoRows
func (r *Repository) UpdateShiftAssignmentStatus(ctx context.Context, sa *domain.ShiftAssignment) error {
	query := `
		UPDATE shift_assignments
		SET
			status = $1,
			actual_start_time = $2,
			actual_end_time = $3,
			version = version + 1
		WHERE id = $4 AND version = $5
		RETURNING version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{sa.Status, sa.ActualStartTime, sa.ActualEndTime, sa.ID, sa.Version}
	return r.db.QueryRowContext(ctx, query, args...).Scan(&sa.Version)
}

// InShiftTx 在事务中锁住司机记录后执行 fn
func (r *Repository) InShiftTx(ctx context.Context, driverID int64, fn func(tx shift.TxStore) error) error {
	return r.withTx(ctx, func(tx *Repository) error {
		if err := tx.lockDriver(ctx, driverID); err != nil {
			return err
		}
		return fn(tx)
	})
}
