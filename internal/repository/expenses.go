package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

func (r *Repository) CreateExpense(ctx context.Context, e *domain.Expense) error {
	query := `
		INSERT INTO expenses (user_id, vehicle_id, amount_cents, category, description, date, receipt_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{e.UserID, e.VehicleID, e.Amount, e.Category, e.Description, e.Date, e.ReceiptKey}
	return r.db.QueryRowContext(ctx, query, args...).Scan(&e.ID, &e.CreatedAt)
}

// ListExpenses 按日期升序返回满足条件的支出，日期区间两端都包含
func (r *Repository) ListExpenses(ctx context.Context, q domain.ExpenseQuery) ([]*domain.Expense, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	if q.UserID != nil {
		add("user_id = ?", *q.UserID)
	}
	if q.VehicleID != nil {
		add("vehicle_id = ?", *q.VehicleID)
	}
	if q.Category != nil {
		add("category = ?", *q.Category)
	}
	if q.From != nil {
		add("date >= ?::DATE", *q.From)
	}
	if q.To != nil {
		add("date <= ?::DATE", *q.To)
	}

	query := `
		SELECT id, user_id, vehicle_id, amount_cents, category, description, date, receipt_key, created_at
		FROM expenses
	`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY date, id`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]*domain.Expense, 0)
	for rows.Next() {
		e := &domain.Expense{}
		dst := []any{&e.ID, &e.UserID, &e.VehicleID, &e.Amount, &e.Category, &e.Description, &e.Date, &e.ReceiptKey, &e.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return expenses, nil
}
