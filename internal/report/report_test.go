package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/finance"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/payroll"
	"github.com/xuri/excelize/v2"
)

func TestWritePayroll(t *testing.T) {
	day1 := domain.NewDate(2025, time.March, 1)
	day2 := domain.NewDate(2025, time.March, 2)
	calc := &payroll.Calculation{
		DriverID:     1,
		Tier:         domain.DriverTier1,
		StartDate:    day1,
		EndDate:      day2,
		TotalRevenue: 100000,
		AmountDue:    22500,
		DailyBreakdown: []payroll.DayBreakdown{
			{Date: day1, Revenue: 100000, AmountDue: 22500},
			{Date: day2, Revenue: 0, AmountDue: 0},
		},
	}
	records := []*domain.PayrollRecord{
		{ID: 9, AmountPaid: 10000, PeriodStartDate: day1, PeriodEndDate: day2, PaidAt: time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePayroll(&buf, &domain.Driver{ID: 1, FullName: "张伟"}, calc, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{payrollSheet, recordsSheet}, f.GetSheetList())

	v, err := f.GetCellValue(payrollSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", v)

	v, err = f.GetCellValue(payrollSheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "225", v)

	v, err = f.GetCellValue(recordsSheet, "D2")
	require.NoError(t, err)
	assert.Equal(t, "100", v)
}

func TestWriteFinanceTrend(t *testing.T) {
	entries := []finance.TrendEntry{
		{Month: "Feb 2025", StartDate: domain.NewDate(2025, time.February, 1), EndDate: domain.NewDate(2025, time.February, 28), FinanceDetails: finance.Details{TotalRevenue: 385000}},
		{Month: "Mar 2025 (Next)", StartDate: domain.NewDate(2025, time.March, 1), EndDate: domain.NewDate(2025, time.March, 31), IsProjection: true},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFinanceTrend(&buf, entries))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(trendSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "月份", rows[0][0])
	assert.Equal(t, "3850", rows[1][4])
	assert.Equal(t, "Mar 2025 (Next)", rows[2][0])
	assert.Equal(t, "是", rows[2][3])
}
