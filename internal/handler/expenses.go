package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/aggregation"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/ledger"
)

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ledger.CreateExpenseRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	e, err := h.ledger.CreateExpense(r.Context(), currentUserID(r), req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "支出记录成功", e)
}

func (h *Handler) GroupExpenses(w http.ResponseWriter, r *http.Request) {
	p := newQueryParams(r)
	q := aggregation.Query{
		StartDate: p.Date("startDate"),
		EndDate:   p.Date("endDate"),
		GroupBy:   aggregation.GroupBy(r.URL.Query().Get("groupBy")),
		Page:      p.Page(),
	}
	f := aggregation.ExpenseFilter{
		UserID:    p.Int64("userID"),
		VehicleID: p.Int64("vehicleID"),
	}
	if category := p.String("category"); category != nil {
		c := domain.ExpenseCategory(*category)
		f.Category = &c
	}
	if err := p.Err(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	report, err := h.aggregation.GroupExpenses(r.Context(), q, f)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取支出汇总成功", report)
}
