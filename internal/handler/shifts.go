package handler

import (
	"context"
	"net/http"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/shift"
)

type shiftOperation func(ctx context.Context, userID int64, req shift.Request) (*shift.Result, error)

// handleShiftOperation 解析请求体并执行一次司机操作，pause 和 resume 允许空请求体
func (h *Handler) handleShiftOperation(w http.ResponseWriter, r *http.Request, op shiftOperation, msg string) {
	var req shift.Request
	if err := h.readOptionalJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	result, err := op(r.Context(), currentUserID(r), req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, msg, result)
}

func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	h.handleShiftOperation(w, r, h.shifts.ClockIn, "签到成功")
}

func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	h.handleShiftOperation(w, r, h.shifts.ClockOut, "签退成功")
}

func (h *Handler) PauseShift(w http.ResponseWriter, r *http.Request) {
	h.handleShiftOperation(w, r, h.shifts.Pause, "班次已暂停")
}

func (h *Handler) ResumeShift(w http.ResponseWriter, r *http.Request) {
	h.handleShiftOperation(w, r, h.shifts.Resume, "班次已恢复")
}

func (h *Handler) RecordTelemetry(w http.ResponseWriter, r *http.Request) {
	h.handleShiftOperation(w, r, h.shifts.RecordTelemetry, "读数已记录")
}

func (h *Handler) ListMyShifts(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.shifts.ListAssignments(r.Context(), currentUserID(r))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次列表成功", assignments)
}

func (h *Handler) ListShiftEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.errorResponse(w, r, "班次ID无效")
		return
	}

	events, err := h.shifts.ListEvents(r.Context(), currentUserID(r), currentRole(r), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次事件成功", events)
}

func (h *Handler) CreateShiftAssignment(w http.ResponseWriter, r *http.Request) {
	var req shift.CreateAssignmentRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	sa, err := h.shifts.CreateAssignment(r.Context(), req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "班次创建成功", sa)
}
