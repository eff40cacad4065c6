package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

func (r *Repository) CreateVehicle(ctx context.Context, v *domain.Vehicle) error {
	query := `
		INSERT INTO vehicles (plate_number, model, city)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	return r.db.QueryRowContext(ctx, query, v.PlateNumber, v.Model, v.City).Scan(&v.ID, &v.CreatedAt)
}

func (r *Repository) GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error) {
	query := `
		SELECT plate_number, model, city, created_at
		FROM vehicles WHERE id = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	v := &domain.Vehicle{ID: id}
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&v.PlateNumber, &v.Model, &v.City, &v.CreatedAt); err != nil {
		return nil, err
	}

	return v, nil
}

func (r *Repository) ListVehicles(ctx context.Context) ([]*domain.Vehicle, error) {
	query := `
		SELECT id, plate_number, model, city, created_at
		FROM vehicles ORDER BY id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vehicles := make([]*domain.Vehicle, 0)
	for rows.Next() {
		v := &domain.Vehicle{}
		if err := rows.Scan(&v.ID, &v.PlateNumber, &v.Model, &v.City, &v.CreatedAt); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return vehicles, nil
}

func (r *Repository) CountVehicles(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM vehicles`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var n int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}

	return n, nil
}
