package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

const revenueRecordColumns = `
	id, driver_id, shift_assignment_id, vehicle_id, source, total_revenue_cents, total_profit_cents,
	reconciled, realized_at, earnings_screenshot, created_at, version
`

func scanRevenueRecord(row interface{ Scan(...any) error }) (*domain.RevenueRecord, error) {
	rr := &domain.RevenueRecord{}
	dst := []any{
		&rr.ID, &rr.DriverID, &rr.ShiftAssignmentID, &rr.VehicleID, &rr.Source, &rr.TotalRevenue, &rr.TotalProfit,
		&rr.Reconciled, &rr.RealizedAt, &rr.EarningsScreenshot, &rr.CreatedAt, &rr.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return rr, nil
}

func (r *Repository) CreateRevenueRecord(ctx context.Context, rr *domain.RevenueRecord) error {
	query := `
		INSERT INTO revenue_records (driver_id, shift_assignment_id, vehicle_id, source, total_revenue_cents, total_profit_cents, reconciled, realized_at, earnings_screenshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{rr.DriverID, rr.ShiftAssignmentID, rr.VehicleID, rr.Source, rr.TotalRevenue, rr.TotalProfit, rr.Reconciled, rr.RealizedAt, rr.EarningsScreenshot}
	return r.db.QueryRowContext(ctx, query, args...).Scan(&rr.ID, &rr.CreatedAt, &rr.Version)
}

func (r *Repository) GetRevenueRecord(ctx context.Context, id int64) (*domain.RevenueRecord, error) {
	query := `SELECT ` + revenueRecordColumns + ` FROM revenue_records WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return scanRevenueRecord(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) RevenueRecordExists(ctx context.Context, driverID int64, shiftAssignmentID int64, source domain.RevenueSource) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM revenue_records
			WHERE driver_id = $1 AND shift_assignment_id = $2 AND source = $3
		)
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	exists := false
	if err := r.db.QueryRowContext(ctx, query, driverID, shiftAssignmentID, source).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// UpdateRevenueRecordReconciled 使用乐观锁更新对账状态，版本不一致时返回 sql.ErrNoRows
func (r *Repository) UpdateRevenueRecordReconciled(ctx context.Context, rr *domain.RevenueRecord) error {
	query := `
		UPDATE revenue_records
		SET reconciled = $1, version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return r.db.QueryRowContext(ctx, query, rr.Reconciled, rr.ID, rr.Version).Scan(&rr.Version)
}

// ListRevenueRecords 按实现时间升序返回满足条件的营收记录
func (r *Repository) ListRevenueRecords(ctx context.Context, q domain.RevenueQuery) ([]*domain.RevenueRecord, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	if q.DriverID != nil {
		add("driver_id = ?", *q.DriverID)
	}
	if q.VehicleID != nil {
		add("vehicle_id = ?", *q.VehicleID)
	}
	if q.Source != nil {
		add("source = ?", *q.Source)
	}
	if q.From != nil {
		add("realized_at >= ?", *q.From)
	}
	if q.To != nil {
		add("realized_at < ?", *q.To)
	}

	query := `SELECT ` + revenueRecordColumns + ` FROM revenue_records`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY realized_at, id`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*domain.RevenueRecord, 0)
	for rows.Next() {
		rr, err := scanRevenueRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rr)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *Repository) RevenueSummary(ctx context.Context) (domain.Money, *time.Time, error) {
	query := `SELECT COALESCE(SUM(total_revenue_cents), 0), MIN(realized_at) FROM revenue_records`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var (
		total    domain.Money
		earliest *time.Time
	)
	if err := r.db.QueryRowContext(ctx, query).Scan(&total, &earliest); err != nil {
		return 0, nil, err
	}

	return total, earliest, nil
}
