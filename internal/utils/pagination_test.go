package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	page, pg := Paginate(items, Page{Page: 2, PerPage: 3})
	assert.Equal(t, []int{4, 5, 6}, page)
	assert.Equal(t, 7, pg.TotalSize)
	assert.Equal(t, 3, pg.PageCount)
	assert.False(t, pg.FirstPage)
	assert.False(t, pg.LastPage)
	assert.Equal(t, 3, *pg.NextPage)
	assert.Equal(t, 1, *pg.PrevPage)

	page, pg = Paginate(items, Page{Page: 3, PerPage: 3})
	assert.Equal(t, []int{7}, page)
	assert.True(t, pg.LastPage)
	assert.Nil(t, pg.NextPage)
}

func TestPaginateDefaults(t *testing.T) {
	items := make([]int, 30)

	page, pg := Paginate(items, Page{})
	assert.Len(t, page, DefaultPerPage)
	assert.Equal(t, 1, pg.CurrentPage)
	assert.True(t, pg.FirstPage)
	assert.Nil(t, pg.PrevPage)

	_, pg = Paginate(items, Page{PerPage: 1000})
	assert.Equal(t, MaxPerPage, pg.PageSize)
}

func TestPaginateOutOfRange(t *testing.T) {
	page, pg := Paginate([]string{"a", "b"}, Page{Page: 5, PerPage: 10})
	assert.Empty(t, page)
	assert.NotNil(t, page)
	assert.True(t, pg.LastPage)
	assert.Equal(t, 1, *pg.PrevPage)

	page, pg = Paginate([]string{}, Page{})
	assert.Empty(t, page)
	assert.Equal(t, 0, pg.PageCount)
	assert.True(t, pg.LastPage)
}

func TestPaginateHugePage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name string
		page Page
	}{
		{"乘法溢出为负数", Page{Page: 4611686018427387905, PerPage: 3}},
		{"乘法回绕为零", Page{Page: 4611686018427387905, PerPage: 100}},
		{"最大页码", Page{Page: math.MaxInt, PerPage: MaxPerPage}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, pg := Paginate(items, tt.page)
			assert.Empty(t, page)
			assert.Equal(t, tt.page.Page, pg.CurrentPage)
			assert.True(t, pg.LastPage)
			assert.Nil(t, pg.NextPage)
		})
	}
}
