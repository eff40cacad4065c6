package ledger

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/utils"
)

type memoryStore struct {
	assignments map[int64]*domain.ShiftAssignment
	revenue     []*domain.RevenueRecord
	expenses    []*domain.Expense
}

func (m *memoryStore) GetShiftAssignment(_ context.Context, id int64) (*domain.ShiftAssignment, error) {
	if sa, ok := m.assignments[id]; ok {
		return sa, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStore) RevenueRecordExists(_ context.Context, driverID, shiftAssignmentID int64, source domain.RevenueSource) (bool, error) {
	for _, rr := range m.revenue {
		if rr.DriverID == driverID && rr.ShiftAssignmentID != nil && *rr.ShiftAssignmentID == shiftAssignmentID && rr.Source == source {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) CreateRevenueRecord(_ context.Context, rr *domain.RevenueRecord) error {
	rr.ID = int64(len(m.revenue) + 1)
	rr.Version = 1
	m.revenue = append(m.revenue, rr)
	return nil
}

func (m *memoryStore) GetRevenueRecord(_ context.Context, id int64) (*domain.RevenueRecord, error) {
	for _, rr := range m.revenue {
		if rr.ID == id {
			cp := *rr
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStore) UpdateRevenueRecordReconciled(_ context.Context, rr *domain.RevenueRecord) error {
	for i, cur := range m.revenue {
		if cur.ID == rr.ID && cur.Version == rr.Version {
			rr.Version++
			cp := *rr
			m.revenue[i] = &cp
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memoryStore) CreateExpense(_ context.Context, e *domain.Expense) error {
	e.ID = int64(len(m.expenses) + 1)
	m.expenses = append(m.expenses, e)
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryStore) {
	t.Helper()
	v, err := utils.NewValidator()
	require.NoError(t, err)

	store := &memoryStore{assignments: map[int64]*domain.ShiftAssignment{
		1: {ID: 1, DriverID: 10, VehicleID: 7},
	}}
	svc := NewService(store, v)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, store
}

func ptr[T any](v T) *T { return &v }

func TestCreateRevenueFallsBackToShiftVehicle(t *testing.T) {
	svc, _ := newTestService(t)

	rr, err := svc.CreateRevenue(context.Background(), 10, CreateRevenueRequest{
		ShiftAssignmentID: ptr(int64(1)),
		Source:            domain.RevenueSourceBolt,
		TotalRevenue:      100000,
	})
	require.NoError(t, err)
	require.NotNil(t, rr.VehicleID)
	assert.Equal(t, int64(7), *rr.VehicleID)
	assert.Equal(t, domain.Money(0), rr.TotalProfit)
	assert.False(t, rr.Reconciled)
	assert.Equal(t, svc.now(), rr.RealizedAt)
}

func TestCreateRevenuePlatformUniqueness(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	req := CreateRevenueRequest{ShiftAssignmentID: ptr(int64(1)), Source: domain.RevenueSourceUber, TotalRevenue: 5000}

	_, err := svc.CreateRevenue(ctx, 10, req)
	require.NoError(t, err)

	_, err = svc.CreateRevenue(ctx, 10, req)
	var errs domain.Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "source", errs[0].Field)
	assert.Equal(t, domain.CodeTaken, errs[0].Code)

	// off_trip 不受唯一约束限制
	req.Source = domain.RevenueSourceOffTrip
	_, err = svc.CreateRevenue(ctx, 10, req)
	require.NoError(t, err)
	_, err = svc.CreateRevenue(ctx, 10, req)
	require.NoError(t, err)
}

func TestCreateRevenueValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateRevenue(context.Background(), 10, CreateRevenueRequest{
		Source:       "lyft",
		TotalRevenue: -1,
	})
	var errs domain.Errors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 2)
	assert.Equal(t, domain.CodeInclusion, errs[0].Code)
	assert.Equal(t, "totalRevenue", errs[1].Field)
	assert.Equal(t, domain.CodeGreaterThanOrEqualTo, errs[1].Code)
}

func TestCreateRevenuePlatformRequiresShift(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	for _, source := range []domain.RevenueSource{domain.RevenueSourceBolt, domain.RevenueSourceUber} {
		_, err := svc.CreateRevenue(ctx, 10, CreateRevenueRequest{Source: source, TotalRevenue: 5000})
		var errs domain.Errors
		require.ErrorAs(t, err, &errs, source)
		assert.Equal(t, "shiftAssignmentID", errs[0].Field)
		assert.Equal(t, domain.CodeBlank, errs[0].Code)
	}
	assert.Empty(t, store.revenue)

	// off_trip 可以不关联班次
	rr, err := svc.CreateRevenue(ctx, 10, CreateRevenueRequest{Source: domain.RevenueSourceOffTrip, TotalRevenue: 5000})
	require.NoError(t, err)
	assert.Nil(t, rr.ShiftAssignmentID)
}

func TestCreateRevenueForeignShift(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateRevenue(context.Background(), 11, CreateRevenueRequest{
		ShiftAssignmentID: ptr(int64(1)),
		Source:            domain.RevenueSourceBolt,
	})
	var errs domain.Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, domain.CodePermissionDenied, errs[0].Code)

	_, err = svc.CreateRevenue(context.Background(), 11, CreateRevenueRequest{
		ShiftAssignmentID: ptr(int64(99)),
		Source:            domain.RevenueSourceBolt,
	})
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, domain.CodeShiftAssignmentNotFound, errs[0].Code)
}

func TestReconcileRevenue(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	rr, err := svc.CreateRevenue(ctx, 10, CreateRevenueRequest{Source: domain.RevenueSourceOffTrip, TotalRevenue: 100})
	require.NoError(t, err)

	got, err := svc.ReconcileRevenue(ctx, rr.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Reconciled)
	assert.True(t, store.revenue[0].Reconciled)

	_, err = svc.ReconcileRevenue(ctx, 404, true)
	var errs domain.Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, domain.CodeRevenueRecordNotFound, errs[0].Code)
}

func TestCreateExpense(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	date := domain.NewDate(2025, 3, 1)

	tests := []struct {
		name  string
		req   CreateExpenseRequest
		field string
		code  domain.ErrorCode
	}{
		{"金额为零", CreateExpenseRequest{Amount: 0, Category: domain.ExpenseCategoryToll, Date: date}, "amount", domain.CodeGreaterThan},
		{"未知类别", CreateExpenseRequest{Amount: 100, Category: "food", Date: date}, "category", domain.CodeInclusion},
		{"其他类别缺少描述", CreateExpenseRequest{Amount: 100, Category: domain.ExpenseCategoryOther, Description: "  ", Date: date}, "description", domain.CodeBlank},
		{"缺少日期", CreateExpenseRequest{Amount: 100, Category: domain.ExpenseCategoryToll}, "date", domain.CodeBlank},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateExpense(ctx, 1, tt.req)
			var errs domain.Errors
			require.ErrorAs(t, err, &errs)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, tt.code, errs[0].Code)
		})
	}

	e, err := svc.CreateExpense(ctx, 1, CreateExpenseRequest{
		Amount:      2550,
		Category:    domain.ExpenseCategoryOther,
		Description: "洗车",
		Date:        date,
	})
	require.NoError(t, err)
	require.NotNil(t, e.Description)
	assert.Equal(t, "洗车", *e.Description)
	assert.Nil(t, e.VehicleID)
}
