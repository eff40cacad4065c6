package utils

const (
	DefaultPerPage = 25
	MaxPerPage     = 100
)

// Page 是调用方传入的分页参数，零值表示使用默认值
type Page struct {
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
}

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	PageSize    int  `json:"pageSize"`
	TotalSize   int  `json:"totalSize"`
	PageCount   int  `json:"pageCount"`
	FirstPage   bool `json:"firstPage"`
	LastPage    bool `json:"lastPage"`
	NextPage    *int `json:"nextPage"`
	PrevPage    *int `json:"prevPage"`
}

// Paginate 对已经排好序的完整列表进行分页
func Paginate[T any](items []T, p Page) ([]T, Pagination) {
	p = p.normalize()
	total := len(items)
	pageCount := (total + p.PerPage - 1) / p.PerPage

	pg := Pagination{
		CurrentPage: p.Page,
		PageSize:    p.PerPage,
		TotalSize:   total,
		PageCount:   pageCount,
		FirstPage:   p.Page == 1,
		LastPage:    p.Page >= pageCount,
	}
	if p.Page < pageCount {
		next := p.Page + 1
		pg.NextPage = &next
	}
	if p.Page > 1 {
		prev := min(p.Page-1, max(pageCount, 1))
		pg.PrevPage = &prev
	}

	// 页码超出范围时直接返回空列表，避免页码过大时乘法溢出
	if p.Page > pageCount {
		return []T{}, pg
	}
	start := (p.Page - 1) * p.PerPage
	end := min(start+p.PerPage, total)
	return items[start:end], pg
}
