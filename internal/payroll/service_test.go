package payroll

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/utils"
)

type memoryStore struct {
	mu      sync.Mutex
	drivers map[int64]*domain.Driver
	users   map[int64]*domain.User
	revenue []*domain.RevenueRecord
	records []*domain.PayrollRecord
}

func (m *memoryStore) GetDriver(_ context.Context, id int64) (*domain.Driver, error) {
	if d, ok := m.drivers[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStore) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStore) ListRevenueRecords(_ context.Context, q domain.RevenueQuery) ([]*domain.RevenueRecord, error) {
	var out []*domain.RevenueRecord
	for _, rr := range m.revenue {
		if q.DriverID != nil && rr.DriverID != *q.DriverID {
			continue
		}
		if q.From != nil && rr.RealizedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && !rr.RealizedAt.Before(*q.To) {
			continue
		}
		out = append(out, rr)
	}
	return out, nil
}

func (m *memoryStore) ListPayrollRecords(_ context.Context, driverID *int64) ([]*domain.PayrollRecord, error) {
	var out []*domain.PayrollRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if driverID == nil || m.records[i].DriverID == *driverID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func (m *memoryStore) PayrollRecordExists(_ context.Context, driverID int64, start, end domain.Date) (bool, error) {
	for _, pr := range m.records {
		if pr.DriverID == driverID && pr.PeriodStartDate.Equal(start) && pr.PeriodEndDate.Equal(end) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) SumPayrollPaidWithin(_ context.Context, driverID int64, start, end domain.Date) (domain.Money, error) {
	var sum domain.Money
	for _, pr := range m.records {
		if pr.DriverID == driverID && !pr.PeriodStartDate.Before(start) && !pr.PeriodEndDate.After(end) {
			sum += pr.AmountPaid
		}
	}
	return sum, nil
}

func (m *memoryStore) CreatePayrollRecord(_ context.Context, pr *domain.PayrollRecord) error {
	pr.ID = int64(len(m.records) + 1)
	m.records = append(m.records, pr)
	return nil
}

func (m *memoryStore) InPayrollTx(_ context.Context, _ int64, fn func(tx TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.records)
	if err := fn(m); err != nil {
		m.records = m.records[:n]
		return err
	}
	return nil
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (func(), error) { return func() {}, nil }

type recordingNotifier struct {
	mu       sync.Mutex
	messages []domain.MailMessage
	err      error
}

func (n *recordingNotifier) PublishMail(_ context.Context, msg domain.MailMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return n.err
}

func day(d int) time.Time {
	return time.Date(2025, 3, d, 12, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (*Service, *memoryStore, *recordingNotifier) {
	t.Helper()
	v, err := utils.NewValidator()
	require.NoError(t, err)

	store := &memoryStore{
		drivers: map[int64]*domain.Driver{
			1: {ID: 1, UserID: 10, FullName: "王伟", Tier: domain.DriverTier1},
		},
		users: map[int64]*domain.User{
			10: {ID: 10, FullName: "王伟", Email: "wangwei@example.com"},
		},
		revenue: []*domain.RevenueRecord{
			{DriverID: 1, TotalRevenue: 100000, RealizedAt: day(1)},
			{DriverID: 1, TotalRevenue: 100000, RealizedAt: day(2)},
		},
	}
	notifier := &recordingNotifier{}
	svc := NewService(store, noopLocker{}, notifier, v, testFormula(), time.UTC)
	svc.now = func() time.Time { return day(10) }
	return svc, store, notifier
}

func codeOf(t *testing.T, err error) domain.ErrorCode {
	t.Helper()
	var errs domain.Errors
	require.ErrorAs(t, err, &errs)
	return errs[0].Code
}

func TestCalculateDriverPayroll(t *testing.T) {
	svc, _, _ := newTestService(t)

	c, err := svc.CalculateDriverPayroll(context.Background(), 1, domain.NewDate(2025, 3, 1), domain.NewDate(2025, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, domain.Money(22500), c.AmountDue)

	_, err = svc.CalculateDriverPayroll(context.Background(), 404, domain.NewDate(2025, 3, 1), domain.NewDate(2025, 3, 1))
	assert.Equal(t, domain.CodeDriverNotFound, codeOf(t, err))

	_, err = svc.CalculateDriverPayroll(context.Background(), 1, domain.NewDate(2025, 3, 2), domain.NewDate(2025, 3, 1))
	assert.Equal(t, domain.CodeInvalid, codeOf(t, err))
}

func TestCreatePayrollRecordDuplicate(t *testing.T) {
	svc, store, notifier := newTestService(t)
	req := CreateRecordRequest{
		DriverID:        1,
		AmountPaid:      10000,
		PeriodStartDate: domain.NewDate(2025, 3, 1),
		PeriodEndDate:   domain.NewDate(2025, 3, 1),
	}

	pr, calc, err := svc.CreatePayrollRecord(context.Background(), 99, req)
	require.NoError(t, err)
	assert.Equal(t, int64(99), pr.PaidByUserID)
	assert.Equal(t, day(10), pr.PaidAt)
	assert.Equal(t, domain.Money(22500), calc.AmountDue)

	_, _, err = svc.CreatePayrollRecord(context.Background(), 99, req)
	assert.Equal(t, domain.CodeDuplicateRecord, codeOf(t, err))
	assert.Len(t, store.records, 1)

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, domain.MailTypePayrollPaid, notifier.messages[0].Type)
	assert.Equal(t, "wangwei@example.com", notifier.messages[0].To)
	data := notifier.messages[0].Data.(domain.PayrollPaidMailData)
	assert.Equal(t, "100.00", data.AmountPaid)
	assert.Equal(t, "225.00", data.AmountDue)
}

func TestCreatePayrollRecordRejectsOverpayment(t *testing.T) {
	svc, store, _ := newTestService(t)

	_, _, err := svc.CreatePayrollRecord(context.Background(), 99, CreateRecordRequest{
		DriverID:        1,
		AmountPaid:      22501,
		PeriodStartDate: domain.NewDate(2025, 3, 1),
		PeriodEndDate:   domain.NewDate(2025, 3, 1),
	})
	var errs domain.Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "amountPaid", errs[0].Field)
	assert.Equal(t, domain.CodeLessThanOrEqualTo, errs[0].Code)
	assert.Empty(t, store.records)
}

func TestCreatePayrollRecordSumGuard(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.CreatePayrollRecord(ctx, 99, CreateRecordRequest{
		DriverID:        1,
		AmountPaid:      22500,
		PeriodStartDate: domain.NewDate(2025, 3, 1),
		PeriodEndDate:   domain.NewDate(2025, 3, 1),
	})
	require.NoError(t, err)

	// 3 月 1 日至 2 日应付 450 元，其中 225 元已经支付
	_, _, err = svc.CreatePayrollRecord(ctx, 99, CreateRecordRequest{
		DriverID:        1,
		AmountPaid:      30000,
		PeriodStartDate: domain.NewDate(2025, 3, 1),
		PeriodEndDate:   domain.NewDate(2025, 3, 2),
	})
	assert.Equal(t, domain.CodeLessThanOrEqualTo, codeOf(t, err))

	_, _, err = svc.CreatePayrollRecord(ctx, 99, CreateRecordRequest{
		DriverID:        1,
		AmountPaid:      22500,
		PeriodStartDate: domain.NewDate(2025, 3, 1),
		PeriodEndDate:   domain.NewDate(2025, 3, 2),
	})
	require.NoError(t, err)
	assert.Len(t, store.records, 2)
}

func TestCreatePayrollRecordValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.CreatePayrollRecord(context.Background(), 99, CreateRecordRequest{DriverID: 1})
	var errs domain.Errors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 3)
	assert.Equal(t, "amountPaid", errs[0].Field)
	assert.Equal(t, domain.CodeGreaterThan, errs[0].Code)
	assert.Equal(t, "periodStartDate", errs[1].Field)
	assert.Equal(t, domain.CodeBlank, errs[1].Code)
}

func TestCreatePayrollRecordConcurrentDuplicates(t *testing.T) {
	svc, store, _ := newTestService(t)
	req := CreateRecordRequest{
		DriverID:        1,
		AmountPaid:      100,
		PeriodStartDate: domain.NewDate(2025, 3, 1),
		PeriodEndDate:   domain.NewDate(2025, 3, 2),
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = svc.CreatePayrollRecord(context.Background(), 99, req)
		}()
	}
	wg.Wait()

	assert.Len(t, store.records, 1)
}

func TestNotifyFailureDoesNotFailRecord(t *testing.T) {
	svc, store, notifier := newTestService(t)
	notifier.err = errors.New("broker down")

	_, _, err := svc.CreatePayrollRecord(context.Background(), 99, CreateRecordRequest{
		DriverID:        1,
		AmountPaid:      100,
		PeriodStartDate: domain.NewDate(2025, 3, 1),
		PeriodEndDate:   domain.NewDate(2025, 3, 1),
	})
	require.NoError(t, err)
	assert.Len(t, store.records, 1)
}

func TestListPayrollRecords(t *testing.T) {
	svc, store, _ := newTestService(t)
	for i := 1; i <= 3; i++ {
		store.records = append(store.records, &domain.PayrollRecord{ID: int64(i), DriverID: 1})
	}
	store.records = append(store.records, &domain.PayrollRecord{ID: 4, DriverID: 2})

	driverID := int64(1)
	res, err := svc.ListPayrollRecords(context.Background(), &driverID, utils.Page{PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, 3, res.Pagination.TotalSize)
	assert.Equal(t, int64(3), res.Records[0].ID)
}
