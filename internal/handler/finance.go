package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/report"
)

func (h *Handler) GetFinanceDetails(w http.ResponseWriter, r *http.Request) {
	p := newQueryParams(r)
	start, end := p.RequiredDate("startDate"), p.RequiredDate("endDate")
	if err := p.Err(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	details, err := h.finance.FinanceDetails(r.Context(), start, end)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取财务数据成功", details)
}

func (h *Handler) GetFinanceTrend(w http.ResponseWriter, r *http.Request) {
	p := newQueryParams(r)
	monthsBack := p.Int("monthsBack", h.config.Finance.TrendMonths)
	// 默认附带下个月的预测
	includeProjection := p.Bool("includeProjection", true)
	if err := p.Err(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	entries, err := h.finance.FinanceDetailsTrend(r.Context(), monthsBack, includeProjection)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取财务趋势成功", entries)
}

func (h *Handler) ExportFinanceTrend(w http.ResponseWriter, r *http.Request) {
	p := newQueryParams(r)
	monthsBack := p.Int("monthsBack", h.config.Finance.TrendMonths)
	includeProjection := p.Bool("includeProjection", true)
	if err := p.Err(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	entries, err := h.finance.FinanceDetailsTrend(r.Context(), monthsBack, includeProjection)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	filename := fmt.Sprintf("finance_trend_%d.xlsx", monthsBack)
	h.writeXLSX(w, r, filename, func(buf *bytes.Buffer) error {
		return report.WriteFinanceTrend(buf, entries)
	})
}
