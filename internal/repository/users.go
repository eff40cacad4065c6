package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

func (r *Repository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT username, password_hash, full_name, email, role, is_active, created_at, version
		FROM users WHERE id = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	user := &domain.User{
		ID: id,
	}

	dst := []any{&user.Username, &user.PasswordHash, &user.FullName, &user.Email, &user.Role, &user.IsActive, &user.CreatedAt, &user.Version}
	if err := r.db.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, password_hash, full_name, email, role, is_active, created_at, version
		FROM users WHERE username = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	user := &domain.User{
		Username: username,
	}

	dst := []any{&user.ID, &user.PasswordHash, &user.FullName, &user.Email, &user.Role, &user.IsActive, &user.CreatedAt, &user.Version}
	if err := r.db.QueryRowContext(ctx, query, username).Scan(dst...); err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateUser 使用乐观锁更新用户，版本不一致时返回 sql.ErrNoRows
func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET
			password_hash = $1,
			email = $2,
			role = $3,
			is_active = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING username, full_name, created_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{user.PasswordHash, user.Email, user.Role, user.IsActive, user.ID, user.Version}
	dst := []any{&user.Username, &user.FullName, &user.CreatedAt, &user.Version}
	return r.db.QueryRowContext(ctx, query, args...).Scan(dst...)
}

func (r *Repository) GetAllUsers(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT id, username, password_hash, full_name, email, role, is_active, created_at, version
		FROM users ORDER BY id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user := &domain.User{}
		dst := []any{&user.ID, &user.Username, &user.PasswordHash, &user.FullName, &user.Email, &user.Role, &user.IsActive, &user.CreatedAt, &user.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (username, password_hash, full_name, email, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, created_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{user.Username, user.PasswordHash, user.FullName, user.Email, user.Role}
	return r.db.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.Version)
}

// CreateUserWithDriver 在同一个事务中创建用户及其司机档案
func (r *Repository) CreateUserWithDriver(ctx context.Context, user *domain.User, driver *domain.Driver) error {
	return r.withTx(ctx, func(tx *Repository) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		if driver == nil {
			return nil
		}
		driver.UserID = user.ID
		driver.FullName = user.FullName
		return tx.CreateDriver(ctx, driver)
	})
}

func (r *Repository) CheckEmailIfExists(ctx context.Context, email string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	isExists := false
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&isExists); err != nil {
		return false, err
	}

	return isExists, nil
}
