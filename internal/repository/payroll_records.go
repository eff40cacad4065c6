package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/payroll"
)

func (r *Repository) PayrollRecordExists(ctx context.Context, driverID int64, start, end domain.Date) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM payroll_records
			WHERE driver_id = $1 AND period_start_date = $2::DATE AND period_end_date = $3::DATE
		)
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	exists := false
	if err := r.db.QueryRowContext(ctx, query, driverID, start, end).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// SumPayrollPaidWithin 返回支付周期完全落在 [start, end] 内的已支付金额之和
func (r *Repository) SumPayrollPaidWithin(ctx context.Context, driverID int64, start, end domain.Date) (domain.Money, error) {
	query := `
		SELECT COALESCE(SUM(amount_paid_cents), 0) FROM payroll_records
		WHERE driver_id = $1 AND period_start_date >= $2::DATE AND period_end_date <= $3::DATE
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var total domain.Money
	if err := r.db.QueryRowContext(ctx, query, driverID, start, end).Scan(&total); err != nil {
		return 0, err
	}

	return total, nil
}

func (r *Repository) CreatePayrollRecord(ctx context.Context, pr *domain.PayrollRecord) error {
	query := `
		INSERT INTO payroll_records (driver_id, paid_by_user_id, amount_paid_cents, period_start_date, period_end_date, paid_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{pr.DriverID, pr.PaidByUserID, pr.AmountPaid, pr.PeriodStartDate, pr.PeriodEndDate, pr.PaidAt, pr.Notes}
	return r.db.QueryRowContext(ctx, query, args...).Scan(&pr.ID, &pr.CreatedAt)
}

// ListPayrollRecords 按支付时间倒序返回工资记录，driverID 为空时返回全部
func (r *Repository) ListPayrollRecords(ctx context.Context, driverID *int64) ([]*domain.PayrollRecord, error) {
	query := `
		SELECT id, driver_id, paid_by_user_id, amount_paid_cents, period_start_date, period_end_date, paid_at, notes, created_at
		FROM payroll_records
		WHERE $1::BIGINT IS NULL OR driver_id = $1
		ORDER BY paid_at DESC, id DESC
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*domain.PayrollRecord, 0)
	for rows.Next() {
		pr := &domain.PayrollRecord{}
		dst := []any{&pr.ID, &pr.DriverID, &pr.PaidByUserID, &pr.AmountPaid, &pr.PeriodStartDate, &pr.PeriodEndDate, &pr.PaidAt, &pr.Notes, &pr.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		records = append(records, pr)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// InPayrollTx 在事务中锁住司机记录后执行 fn
func (r *Repository) InPayrollTx(ctx context.Context, driverID int64, fn func(tx payroll.TxStore) error) error {
	return r.withTx(ctx, func(tx *Repository) error {
		if err := tx.lockDriver(ctx, driverID); err != nil {
			return err
		}
		return fn(tx)
	})
}
