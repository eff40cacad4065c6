package handler

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

func (h *Handler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := h.repository.ListDrivers(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取司机列表成功", drivers)
}

func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.repository.ListVehicles(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取车辆列表成功", vehicles)
}

func (h *Handler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlateNumber string `json:"plateNumber" validate:"required,max=20"`
		Model       string `json:"model" validate:"max=100"`
		City        string `json:"city" validate:"max=100"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	v := &domain.Vehicle{
		PlateNumber: req.PlateNumber,
		Model:       req.Model,
		City:        req.City,
	}

	if err := h.repository.CreateVehicle(r.Context(), v); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "vehicles_plate_number_key" {
			h.businessError(w, r, domain.NewFieldError("plateNumber", domain.CodeTaken, "车牌号已存在"))
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "车辆创建成功", v)
}
