package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/lock"
)

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("服务器内部错误", "request_id", requestID(r), "method", r.Method, "path", r.URL.Path, "error", err)
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("请求体格式错误")
	}
	return nil
}

// readOptionalJSON 与 readJSON 相同，但允许请求体为空
func (h *Handler) readOptionalJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errors.New("请求体格式错误")
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
		http.Error(w, "服务器内部错误", http.StatusInternalServerError)
	}
}

type Response struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    any           `json:"data"`
	Errors  domain.Errors `json:"errors,omitempty"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, msg string) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: false,
		Message: msg,
		Data:    nil,
	})
}

// businessError 一次性返回全部业务错误，data 固定为 null
func (h *Handler) businessError(w http.ResponseWriter, r *http.Request, errs domain.Errors) {
	msg := "请求未通过校验"
	if len(errs) > 0 {
		msg = errs[0].Message
	}
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: false,
		Message: msg,
		Data:    nil,
		Errors:  errs,
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	var errs domain.Errors
	if errors.As(err, &errs) {
		h.businessError(w, r, errs)
		return
	}

	h.errorResponse(w, r, err.Error())
}

// serviceError 把服务层返回的错误转换为响应，无法识别的错误一律视为服务器内部错误
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var errs domain.Errors
	if errors.As(err, &errs) {
		h.businessError(w, r, errs)
		return
	}

	if errors.Is(err, lock.ErrNotAcquired) {
		h.errorResponse(w, r, "操作过于频繁，请稍后重试")
		return
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.ConstraintName {
		case "shift_assignments_one_open_per_driver":
			h.businessError(w, r, domain.NewError(domain.CodeAlreadyClockedIn, "已有进行中的班次"))
			return
		case "payroll_records_driver_period_key":
			h.businessError(w, r, domain.NewError(domain.CodeDuplicateRecord, "该周期的工资记录已存在"))
			return
		case "revenue_records_platform_unique":
			h.businessError(w, r, domain.NewFieldError("source", domain.CodeTaken, "该班次已登记过此平台的营收"))
			return
		case "revenue_records_platform_shift_required":
			h.businessError(w, r, domain.NewFieldError("shiftAssignmentID", domain.CodeBlank, "平台营收必须关联班次"))
			return
		}
	}

	h.internalServerError(w, r, err)
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.writeJSON(w, r, http.StatusInternalServerError, Response{
		Success: false,
		Message: "服务器内部错误",
		Data:    nil,
	})
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}
