package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/payroll"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// writeXLSX 先把工作簿写入内存，写入失败时仍然可以返回错误响应
func (h *Handler) writeXLSX(w http.ResponseWriter, r *http.Request, filename string, write func(buf *bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logInternalServerError(r, err)
	}
}

func (h *Handler) CalculateDriverPayroll(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.errorResponse(w, r, "司机ID无效")
		return
	}

	p := newQueryParams(r)
	start, end := p.RequiredDate("startDate"), p.RequiredDate("endDate")
	if err := p.Err(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	calc, err := h.payroll.CalculateDriverPayroll(r.Context(), id, start, end)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "计算工资成功", calc)
}

func (h *Handler) ExportDriverPayroll(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.errorResponse(w, r, "司机ID无效")
		return
	}

	p := newQueryParams(r)
	start, end := p.RequiredDate("startDate"), p.RequiredDate("endDate")
	if err := p.Err(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	calc, err := h.payroll.CalculateDriverPayroll(r.Context(), id, start, end)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	driver, err := h.repository.GetDriver(r.Context(), id)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	records, err := h.repository.ListPayrollRecords(r.Context(), &id)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	filename := fmt.Sprintf("payroll_%d_%s_%s.xlsx", id, start, end)
	h.writeXLSX(w, r, filename, func(buf *bytes.Buffer) error {
		return report.WritePayroll(buf, driver, calc, records)
	})
}

type payrollRecordResponse struct {
	Record      *domain.PayrollRecord `json:"record"`
	Calculation *payroll.Calculation  `json:"calculation"`
}

func (h *Handler) CreatePayrollRecord(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreateRecordRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	pr, calc, err := h.payroll.CreatePayrollRecord(r.Context(), currentUserID(r), req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "工资发放已登记", payrollRecordResponse{Record: pr, Calculation: calc})
}

func (h *Handler) ListPayrollRecords(w http.ResponseWriter, r *http.Request) {
	p := newQueryParams(r)
	driverID := p.Int64("driverID")
	page := p.Page()
	if err := p.Err(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	result, err := h.payroll.ListPayrollRecords(r.Context(), driverID, page)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取工资记录成功", result)
}
