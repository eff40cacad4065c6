package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/aggregation"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/finance"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/ledger"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/payroll"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/shift"
)

var (
	_ shift.Store       = (*Repository)(nil)
	_ shift.TxStore     = (*Repository)(nil)
	_ ledger.Store      = (*Repository)(nil)
	_ aggregation.Store = (*Repository)(nil)
	_ payroll.Store     = (*Repository)(nil)
	_ payroll.TxStore   = (*Repository)(nil)
	_ finance.Store     = (*Repository)(nil)
)

// queryer 由 *sql.DB 和 *sql.Tx 共同实现，使得同一套查询既能单独执行也能在事务中执行
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
	db     queryer
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
		db:     dbpool,
	}
}

func (r *Repository) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
}

// withTx 在事务中执行 fn，fn 中使用的 Repository 绑定到该事务
func (r *Repository) withTx(ctx context.Context, fn func(tx *Repository) error) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		// 如果事务已经提交，那么回滚不会产生任何影响
		_ = tx.Rollback()
	}()

	if err := fn(&Repository{cfg: r.cfg, dbpool: r.dbpool, db: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

// lockDriver 锁住司机记录，同一司机的状态变更和工资登记因此串行执行
func (r *Repository) lockDriver(ctx context.Context, driverID int64) error {
	query := `SELECT id FROM drivers WHERE id = $1 FOR UPDATE`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var id int64
	return r.db.QueryRowContext(ctx, query, driverID).Scan(&id)
}
