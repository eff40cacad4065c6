package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/utils"
)

// queryParams 解析查询参数，并收集所有格式错误一起返回
type queryParams struct {
	r    *http.Request
	errs domain.Errors
}

func newQueryParams(r *http.Request) *queryParams {
	return &queryParams{r: r}
}

func (p *queryParams) invalid(field, msg string) {
	p.errs = append(p.errs, domain.FieldError{Message: msg, Field: field, Code: domain.CodeInvalid})
}

func (p *queryParams) Date(name string) *domain.Date {
	v := p.r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	d, err := domain.ParseDate(v)
	if err != nil {
		p.invalid(name, name+" 必须是 YYYY-MM-DD 格式的日期")
		return nil
	}
	return &d
}

// RequiredDate 与 Date 相同，但参数缺失时记为 blank
func (p *queryParams) RequiredDate(name string) domain.Date {
	if p.r.URL.Query().Get(name) == "" {
		p.errs = append(p.errs, domain.FieldError{Message: name + " 为必填参数", Field: name, Code: domain.CodeBlank})
		return domain.Date{}
	}
	d := p.Date(name)
	if d == nil {
		return domain.Date{}
	}
	return *d
}

func (p *queryParams) Int64(name string) *int64 {
	v := p.r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.invalid(name, name+" 必须是整数")
		return nil
	}
	return &n
}

func (p *queryParams) Int(name string, fallback int) int {
	v := p.r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.invalid(name, name+" 必须是整数")
		return fallback
	}
	return n
}

func (p *queryParams) Bool(name string, fallback bool) bool {
	v := p.r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.invalid(name, name+" 必须是布尔值")
		return fallback
	}
	return b
}

func (p *queryParams) String(name string) *string {
	v := p.r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	return &v
}

func (p *queryParams) Page() utils.Page {
	return utils.Page{
		Page:    p.Int("page", 1),
		PerPage: p.Int("perPage", utils.DefaultPerPage),
	}
}

// Err 返回收集到的错误，没有错误时返回 nil
func (p *queryParams) Err() error {
	if len(p.errs) == 0 {
		return nil
	}
	return p.errs
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
