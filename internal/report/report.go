// Package report 把工资和财务数据导出为 Excel 工作簿
package report

import (
	"fmt"
	"io"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/finance"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/payroll"
	"github.com/xuri/excelize/v2"
)

const (
	payrollSheet = "工资明细"
	recordsSheet = "支付记录"
	trendSheet   = "财务趋势"
)

// newWorkbook 创建只包含一个指定名称工作表的工作簿
func newWorkbook(sheet string) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(sheet)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := writeRow(f, sheet, 1, values...); err != nil {
		return err
	}

	style, err := headerStyle(f)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

// 金额以元为单位写入单元格，便于在 Excel 中继续计算
func yuan(m domain.Money) float64 {
	return m.Float()
}

// WritePayroll 导出司机在一个周期内的逐日应付工资以及该司机的支付记录
func WritePayroll(w io.Writer, driver *domain.Driver, calc *payroll.Calculation, records []*domain.PayrollRecord) error {
	f, err := newWorkbook(payrollSheet)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := writeHeader(f, payrollSheet, []string{"日期", "营收", "应付工资"}); err != nil {
		return err
	}

	row := 2
	for _, day := range calc.DailyBreakdown {
		if err := writeRow(f, payrollSheet, row, day.Date.String(), yuan(day.Revenue), yuan(day.AmountDue)); err != nil {
			return err
		}
		row++
	}

	row++
	summary := [][]any{
		{"司机", driver.FullName},
		{"档位", string(calc.Tier)},
		{"周期", fmt.Sprintf("%s ~ %s", calc.StartDate, calc.EndDate)},
		{"总营收", yuan(calc.TotalRevenue)},
		{"应付工资", yuan(calc.AmountDue)},
	}
	for _, values := range summary {
		if err := writeRow(f, payrollSheet, row, values...); err != nil {
			return err
		}
		row++
	}

	if _, err := f.NewSheet(recordsSheet); err != nil {
		return err
	}
	if err := writeHeader(f, recordsSheet, []string{"ID", "周期开始", "周期结束", "支付金额", "支付时间", "备注"}); err != nil {
		return err
	}
	for i, pr := range records {
		notes := ""
		if pr.Notes != nil {
			notes = *pr.Notes
		}
		values := []any{pr.ID, pr.PeriodStartDate.String(), pr.PeriodEndDate.String(), yuan(pr.AmountPaid), pr.PaidAt.Format("2006-01-02 15:04"), notes}
		if err := writeRow(f, recordsSheet, i+2, values...); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// WriteFinanceTrend 导出按月的财务趋势，预测月份单独标出
func WriteFinanceTrend(w io.Writer, entries []finance.TrendEntry) error {
	f, err := newWorkbook(trendSheet)
	if err != nil {
		return err
	}
	defer f.Close()

	headers := []string{"月份", "开始日期", "结束日期", "预测", "营收", "应付工资", "支出", "利润", "累计营收", "月均营收", "车均营收"}
	if err := writeHeader(f, trendSheet, headers); err != nil {
		return err
	}

	for i, e := range entries {
		d := e.FinanceDetails
		projection := ""
		if e.IsProjection {
			projection = "是"
		}
		values := []any{
			e.Month, e.StartDate.String(), e.EndDate.String(), projection,
			yuan(d.TotalRevenue), yuan(d.TotalPayrollDue), yuan(d.TotalExpenses), yuan(d.Earnings),
			yuan(d.TotalRevenueAllTime), yuan(d.AverageRevenuePerMonth), yuan(d.AverageRevenuePerCar),
		}
		if err := writeRow(f, trendSheet, i+2, values...); err != nil {
			return err
		}
	}

	return f.Write(w)
}
