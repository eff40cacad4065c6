package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

const driverColumns = `d.id, d.user_id, u.full_name, d.tier, d.city, d.created_at`

func scanDriver(row interface{ Scan(...any) error }) (*domain.Driver, error) {
	d := &domain.Driver{}
	if err := row.Scan(&d.ID, &d.UserID, &d.FullName, &d.Tier, &d.City, &d.CreatedAt); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *Repository) CreateDriver(ctx context.Context, d *domain.Driver) error {
	query := `
		INSERT INTO drivers (user_id, tier, city)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return r.db.QueryRowContext(ctx, query, d.UserID, d.Tier, d.City).Scan(&d.ID, &d.CreatedAt)
}

func (r *Repository) GetDriver(ctx context.Context, id int64) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers d JOIN users u ON u.id = d.user_id WHERE d.id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return scanDriver(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) GetDriverByUserID(ctx context.Context, userID int64) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers d JOIN users u ON u.id = d.user_id WHERE d.user_id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return scanDriver(r.db.QueryRowContext(ctx, query, userID))
}

func (r *Repository) ListDrivers(ctx context.Context) ([]*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers d JOIN users u ON u.id = d.user_id ORDER BY d.id`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drivers := make([]*domain.Driver, 0)
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return drivers, nil
}
