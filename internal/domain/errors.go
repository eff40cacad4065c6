package domain

import "strings"

type ErrorCode string

const (
	CodeShiftAssignmentNotFound ErrorCode = "SHIFT_ASSIGNMENT_NOT_FOUND"
	CodePermissionDenied        ErrorCode = "PERMISSION_DENIED"
	CodeNoDriverProfile         ErrorCode = "NO_DRIVER_PROFILE"
	CodeAlreadyClockedIn        ErrorCode = "ALREADY_CLOCKED_IN"
	CodeAlreadyClockedOut       ErrorCode = "ALREADY_CLOCKED_OUT"
	CodeNotClockedIn            ErrorCode = "NOT_CLOCKED_IN"
	CodeNoActiveShift           ErrorCode = "NO_ACTIVE_SHIFT"
	CodeNoOpenShift             ErrorCode = "NO_OPEN_SHIFT"
	CodeAlreadyPaused           ErrorCode = "ALREADY_PAUSED"
	CodeNoPausedShift           ErrorCode = "NO_PAUSED_SHIFT"
	CodeNotPaused               ErrorCode = "NOT_PAUSED"
	CodeAmbiguousActiveShift    ErrorCode = "AMBIGUOUS_ACTIVE_SHIFT"
	CodeDuplicateRecord         ErrorCode = "DUPLICATE_RECORD"
	CodeValidationError         ErrorCode = "VALIDATION_ERROR"
	CodeRevenueRecordNotFound   ErrorCode = "REVENUE_RECORD_NOT_FOUND"
	CodeDriverNotFound          ErrorCode = "DRIVER_NOT_FOUND"
	CodeUnknownTier             ErrorCode = "UNKNOWN_TIER"

	// 字段级校验错误
	CodeBlank                ErrorCode = "blank"
	CodeTaken                ErrorCode = "taken"
	CodeInclusion            ErrorCode = "inclusion"
	CodeInvalid              ErrorCode = "invalid"
	CodeGreaterThan          ErrorCode = "greater_than"
	CodeGreaterThanOrEqualTo ErrorCode = "greater_than_or_equal_to"
	CodeLessThanOrEqualTo    ErrorCode = "less_than_or_equal_to"
)

// FieldError 是一条业务错误，Field 为空表示不针对某个字段
type FieldError struct {
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Code    ErrorCode `json:"code"`
}

// Errors 是一次调用中收集到的全部业务错误，允许同时返回多条
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "; ")
}

// Has 判断是否包含某个错误码
func (e Errors) Has(code ErrorCode) bool {
	for _, fe := range e {
		if fe.Code == code {
			return true
		}
	}
	return false
}

func NewError(code ErrorCode, msg string) Errors {
	return Errors{{Message: msg, Code: code}}
}

func NewFieldError(field string, code ErrorCode, msg string) Errors {
	return Errors{{Message: msg, Field: field, Code: code}}
}
