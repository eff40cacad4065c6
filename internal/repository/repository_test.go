package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/payroll"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/shift"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/utils"
)

// 这些测试需要真实的 PostgreSQL，设置 TEST_DATABASE_DSN 后才会执行
func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" || testing.Short() {
		t.Skip("未设置 TEST_DATABASE_DSN，跳过数据库测试")
	}

	require.NoError(t, Migrate(dsn))

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{}
	cfg.Database.QueryTimeout = 5
	cfg.Database.TransactionTimeout = 10

	return NewRepository(cfg, db)
}

func createTestDriver(t *testing.T, r *Repository) (*domain.User, *domain.Driver, *domain.Vehicle) {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	user := &domain.User{
		Username:     "driver_" + suffix,
		PasswordHash: "x",
		FullName:     "测试司机",
		Email:        suffix + "@example.com",
		Role:         domain.RoleDriver,
	}
	driver := &domain.Driver{Tier: domain.DriverTier1, City: "广州"}
	require.NoError(t, r.CreateUserWithDriver(ctx, user, driver))

	vehicle := &domain.Vehicle{PlateNumber: "粤A·" + suffix, Model: "比亚迪 e6", City: "广州"}
	require.NoError(t, r.CreateVehicle(ctx, vehicle))

	return user, driver, vehicle
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (func(), error) { return func() {}, nil }

type noopPublisher struct{}

func (noopPublisher) PublishShiftEvent(context.Context, *domain.ShiftAssignment, *domain.ShiftEvent) error {
	return nil
}

func TestCreateUserWithDriver(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	user, driver, _ := createTestDriver(t, r)

	got, err := r.GetDriverByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, driver.ID, got.ID)
	assert.Equal(t, domain.DriverTier1, got.Tier)
	assert.Equal(t, "测试司机", got.FullName)

	// 同一用户不能拥有第二个司机档案
	err = r.CreateDriver(ctx, &domain.Driver{UserID: user.ID, Tier: domain.DriverTier2, City: "深圳"})
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "drivers_user_id_key", pgErr.ConstraintName)
}

func TestShiftLifecycleAgainstDatabase(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	user, driver, vehicle := createTestDriver(t, r)

	validate, err := utils.NewValidator()
	require.NoError(t, err)
	svc := shift.NewService(r, noopLocker{}, noopPublisher{}, validate)

	start := time.Now().Add(-time.Hour)
	sa := &domain.ShiftAssignment{
		DriverID:           driver.ID,
		VehicleID:          vehicle.ID,
		ScheduledStartTime: start,
		ScheduledEndTime:   start.Add(8 * time.Hour),
		Status:             domain.ShiftStatusScheduled,
		City:               driver.City,
	}
	require.NoError(t, r.CreateShiftAssignment(ctx, sa))

	res, err := svc.ClockIn(ctx, user.ID, shift.Request{})
	require.NoError(t, err)
	assert.Equal(t, sa.ID, res.ShiftAssignment.ID)
	assert.Equal(t, domain.ShiftStatusActive, res.ShiftAssignment.Status)

	_, err = svc.ClockIn(ctx, user.ID, shift.Request{})
	var errs domain.Errors
	require.ErrorAs(t, err, &errs)
	assert.True(t, errs.Has(domain.CodeAlreadyClockedIn))

	_, err = svc.Pause(ctx, user.ID, shift.Request{})
	require.NoError(t, err)
	_, err = svc.Resume(ctx, user.ID, shift.Request{})
	require.NoError(t, err)

	res, err = svc.ClockOut(ctx, user.ID, shift.Request{})
	require.NoError(t, err)
	assert.Equal(t, domain.ShiftStatusCompleted, res.ShiftAssignment.Status)

	events, err := r.ListShiftEvents(ctx, sa.ID)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, domain.ShiftEventClockIn, events[0].EventType)
	assert.Equal(t, domain.ShiftEventClockOut, events[3].EventType)

	stored, err := r.GetShiftAssignment(ctx, sa.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ShiftStatusCompleted, stored.Status)
	assert.NotNil(t, stored.ActualStartTime)
	assert.NotNil(t, stored.ActualEndTime)
}

func TestOneOpenShiftPerDriver(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	_, driver, vehicle := createTestDriver(t, r)

	now := time.Now()
	open := func() *domain.ShiftAssignment {
		sa := &domain.ShiftAssignment{
			DriverID:           driver.ID,
			VehicleID:          vehicle.ID,
			ScheduledStartTime: now,
			ScheduledEndTime:   now.Add(time.Hour),
			Status:             domain.ShiftStatusScheduled,
			City:               driver.City,
		}
		require.NoError(t, r.CreateShiftAssignment(ctx, sa))
		sa.Status = domain.ShiftStatusActive
		sa.ActualStartTime = &now
		return sa
	}

	first, second := open(), open()
	require.NoError(t, r.UpdateShiftAssignmentStatus(ctx, first))

	err := r.UpdateShiftAssignmentStatus(ctx, second)
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "shift_assignments_one_open_per_driver", pgErr.ConstraintName)

	// 过期的版本号不会覆盖已提交的状态
	stale := *first
	stale.Version--
	stale.Status = domain.ShiftStatusCompleted
	assert.ErrorIs(t, r.UpdateShiftAssignmentStatus(ctx, &stale), sql.ErrNoRows)
}

func TestPayrollRecords(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	user, driver, _ := createTestDriver(t, r)

	start, end := domain.NewDate(2024, 1, 1), domain.NewDate(2024, 1, 7)
	record := func() *domain.PayrollRecord {
		return &domain.PayrollRecord{
			DriverID:        driver.ID,
			PaidByUserID:    user.ID,
			AmountPaid:      12345,
			PeriodStartDate: start,
			PeriodEndDate:   end,
			PaidAt:          time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC),
		}
	}

	err := r.InPayrollTx(ctx, driver.ID, func(tx payroll.TxStore) error {
		exists, err := tx.PayrollRecordExists(ctx, driver.ID, start, end)
		if err != nil {
			return err
		}
		assert.False(t, exists)
		return tx.CreatePayrollRecord(ctx, record())
	})
	require.NoError(t, err)

	exists, err := r.PayrollRecordExists(ctx, driver.ID, start, end)
	require.NoError(t, err)
	assert.True(t, exists)

	paid, err := r.SumPayrollPaidWithin(ctx, driver.ID, start, end)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(12345), paid)

	err = r.CreatePayrollRecord(ctx, record())
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "payroll_records_driver_period_key", pgErr.ConstraintName)

	records, err := r.ListPayrollRecords(ctx, &driver.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, start, records[0].PeriodStartDate)
	assert.Equal(t, end, records[0].PeriodEndDate)
}

func TestPlatformRevenueRequiresShift(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	_, driver, _ := createTestDriver(t, r)

	err := r.CreateRevenueRecord(ctx, &domain.RevenueRecord{
		DriverID:     driver.ID,
		Source:       domain.RevenueSourceBolt,
		TotalRevenue: 1000,
		RealizedAt:   time.Now(),
	})
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "revenue_records_platform_shift_required", pgErr.ConstraintName)

	offTrip := &domain.RevenueRecord{
		DriverID:     driver.ID,
		Source:       domain.RevenueSourceOffTrip,
		TotalRevenue: 1000,
		RealizedAt:   time.Now(),
	}
	require.NoError(t, r.CreateRevenueRecord(ctx, offTrip))
	assert.NotZero(t, offTrip.ID)
}
