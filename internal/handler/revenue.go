package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/aggregation"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/ledger"
)

// revenueDriverID 确定营收归属的司机：司机只能为自己记录，后台人员必须指定司机
func (h *Handler) revenueDriverID(r *http.Request, requested *int64) (int64, error) {
	if currentRole(r) != domain.RoleDriver {
		if requested == nil {
			return 0, domain.NewFieldError("driverID", domain.CodeBlank, "必须指定司机")
		}
		if _, err := h.repository.GetDriver(r.Context(), *requested); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, domain.NewFieldError("driverID", domain.CodeDriverNotFound, "司机不存在")
			}
			return 0, err
		}
		return *requested, nil
	}

	driver, err := h.repository.GetDriverByUserID(r.Context(), currentUserID(r))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.NewError(domain.CodeNoDriverProfile, "当前用户没有司机档案")
		}
		return 0, err
	}
	if requested != nil && *requested != driver.ID {
		return 0, domain.NewError(domain.CodePermissionDenied, "不能为其他司机记录营收")
	}
	return driver.ID, nil
}

func (h *Handler) CreateRevenue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DriverID *int64 `json:"driverID"`
		ledger.CreateRevenueRequest
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	driverID, err := h.revenueDriverID(r, req.DriverID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	rr, err := h.ledger.CreateRevenue(r.Context(), driverID, req.CreateRevenueRequest)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "营收记录成功", rr)
}

func (h *Handler) ReconcileRevenue(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.errorResponse(w, r, "营收记录ID无效")
		return
	}

	var req struct {
		Reconciled *bool `json:"reconciled" validate:"required"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	rr, err := h.ledger.ReconcileRevenue(r.Context(), id, *req.Reconciled)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "核对状态已更新", rr)
}

func (h *Handler) GroupRevenue(w http.ResponseWriter, r *http.Request) {
	p := newQueryParams(r)
	q := aggregation.Query{
		StartDate: p.Date("startDate"),
		EndDate:   p.Date("endDate"),
		GroupBy:   aggregation.GroupBy(r.URL.Query().Get("groupBy")),
		Page:      p.Page(),
	}
	f := aggregation.RevenueFilter{
		DriverID:  p.Int64("driverID"),
		VehicleID: p.Int64("vehicleID"),
	}
	if source := p.String("source"); source != nil {
		s := domain.RevenueSource(*source)
		f.Source = &s
	}
	if err := p.Err(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	report, err := h.aggregation.GroupRevenue(r.Context(), q, f)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取营收汇总成功", report)
}
