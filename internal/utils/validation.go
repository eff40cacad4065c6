package utils

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

// Validator 对请求结构体做字段校验，并把所有失败的字段一次性转换为业务错误
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewValidator() (*Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 错误中的字段名使用 json 名称，方便前端定位
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Validator{
		validate:   validate,
		translator: trans,
	}, nil
}

// Struct 校验通过时返回 nil，校验失败时返回 domain.Errors
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	errs := make(domain.Errors, 0, len(validationErrors))
	for _, fe := range validationErrors {
		errs = append(errs, domain.FieldError{
			Message: fe.Translate(v.translator),
			Field:   fe.Field(),
			Code:    codeForTag(fe.Tag(), fe.Kind()),
		})
	}
	return errs
}

func codeForTag(tag string, kind reflect.Kind) domain.ErrorCode {
	switch tag {
	case "required", "required_if", "required_with":
		return domain.CodeBlank
	case "gt":
		return domain.CodeGreaterThan
	case "gte":
		return domain.CodeGreaterThanOrEqualTo
	case "lte":
		return domain.CodeLessThanOrEqualTo
	case "min":
		if kind == reflect.String || kind == reflect.Slice {
			return domain.CodeInvalid
		}
		return domain.CodeGreaterThanOrEqualTo
	case "max":
		if kind == reflect.String || kind == reflect.Slice {
			return domain.CodeInvalid
		}
		return domain.CodeLessThanOrEqualTo
	case "oneof":
		return domain.CodeInclusion
	default:
		return domain.CodeInvalid
	}
}
