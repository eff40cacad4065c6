package aggregation

import (
	"sort"
	"strconv"
	"time"

	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/utils"
)

// NoVehicleKey 是没有关联车辆的记录所在的分组
const NoVehicleKey = "no-vehicle"

// 每个分组最多返回的明细条数
const maxGroupEntries = 100

type GroupBy string

const (
	GroupByDriver  GroupBy = "driver"
	GroupByVehicle GroupBy = "vehicle"
)

func (g GroupBy) Valid() bool {
	return g == GroupByDriver || g == GroupByVehicle
}

// Window 是两端都包含的日期区间
type Window struct {
	Start domain.Date
	End   domain.Date
}

// NewWindow 缺省的开始日期为 1970-01-01，缺省的结束日期为 today
func NewWindow(start, end *domain.Date, today domain.Date) Window {
	w := Window{Start: domain.NewDate(1970, time.January, 1), End: today}
	if start != nil {
		w.Start = *start
	}
	if end != nil {
		w.End = *end
	}
	return w
}

func (w Window) Contains(d domain.Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

type RevenueFilter struct {
	DriverID  *int64
	VehicleID *int64
	Source    *domain.RevenueSource
}

func (f RevenueFilter) match(rr *domain.RevenueRecord) bool {
	if f.DriverID != nil && rr.DriverID != *f.DriverID {
		return false
	}
	if f.VehicleID != nil && (rr.VehicleID == nil || *rr.VehicleID != *f.VehicleID) {
		return false
	}
	if f.Source != nil && rr.Source != *f.Source {
		return false
	}
	return true
}

type RevenueGroup struct {
	Key             string                                `json:"key"`
	EntityID        *int64                                `json:"entityID"`
	Date            domain.Date                           `json:"date"`
	Total           domain.Money                          `json:"total"`
	TotalProfit     domain.Money                          `json:"totalProfit"`
	SourceBreakdown map[domain.RevenueSource]domain.Money `json:"sourceBreakdown"`
	AllReconciled   bool                                  `json:"allReconciled"`
	Count           int                                   `json:"count"`
	Entries         []*domain.RevenueRecord               `json:"entries"`
}

type RevenueReport struct {
	Groups       []RevenueGroup                        `json:"groups"`
	Pagination   utils.Pagination                      `json:"pagination"`
	Totals       domain.Money                          `json:"totals"`
	SourceTotals map[domain.RevenueSource]domain.Money `json:"sourceTotals"`
	Count        int                                   `json:"count"`
}

// GroupRevenue 按 (司机或车辆, 日期) 对窗口内的营收分组
//
// 分组按日期倒序，同一天内按 key 升序。分页作用于分组列表，
// 顶层的合计与分页无关，覆盖整个过滤后的窗口。
func GroupRevenue(records []*domain.RevenueRecord, w Window, f RevenueFilter, by GroupBy, page utils.Page, loc *time.Location) RevenueReport {
	report := RevenueReport{SourceTotals: map[domain.RevenueSource]domain.Money{}}
	index := map[groupKey]*RevenueGroup{}

	for _, rr := range records {
		date := domain.DateOf(rr.RealizedAt, loc)
		if !w.Contains(date) || !f.match(rr) {
			continue
		}

		var entity *int64
		switch by {
		case GroupByVehicle:
			entity = rr.VehicleID
		default:
			entity = &rr.DriverID
		}

		k := newGroupKey(entity, date)
		g, ok := index[k]
		if !ok {
			g = &RevenueGroup{
				Key:             k.key,
				EntityID:        entity,
				Date:            date,
				SourceBreakdown: map[domain.RevenueSource]domain.Money{},
				AllReconciled:   true,
			}
			index[k] = g
		}

		g.Total += rr.TotalRevenue
		g.TotalProfit += rr.TotalProfit
		g.SourceBreakdown[rr.Source] += rr.TotalRevenue
		g.AllReconciled = g.AllReconciled && rr.Reconciled
		g.Count++
		g.Entries = append(g.Entries, rr)

		report.Totals += rr.TotalRevenue
		report.SourceTotals[rr.Source] += rr.TotalRevenue
		report.Count++
	}

	groups := make([]RevenueGroup, 0, len(index))
	for _, g := range index {
		sort.SliceStable(g.Entries, func(i, j int) bool {
			return g.Entries[i].RealizedAt.Before(g.Entries[j].RealizedAt)
		})
		if len(g.Entries) > maxGroupEntries {
			g.Entries = g.Entries[:maxGroupEntries]
		}
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groupLess(groups[i].Date, groups[i].Key, groups[j].Date, groups[j].Key)
	})

	report.Groups, report.Pagination = utils.Paginate(groups, page)
	return report
}

type DailyTotal struct {
	Date  domain.Date  `json:"date"`
	Total domain.Money `json:"total"`
}

// DailyRevenue 返回窗口内每天的营收合计，按日期升序，没有营收的日期不出现
func DailyRevenue(records []*domain.RevenueRecord, w Window, f RevenueFilter, loc *time.Location) []DailyTotal {
	totals := map[domain.Date]domain.Money{}
	for _, rr := range records {
		date := domain.DateOf(rr.RealizedAt, loc)
		if !w.Contains(date) || !f.match(rr) {
			continue
		}
		totals[date] += rr.TotalRevenue
	}

	days := make([]DailyTotal, 0, len(totals))
	for date, total := range totals {
		days = append(days, DailyTotal{Date: date, Total: total})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days
}

type ExpenseFilter struct {
	UserID    *int64
	VehicleID *int64
	Category  *domain.ExpenseCategory
}

func (f ExpenseFilter) match(e *domain.Expense) bool {
	if f.UserID != nil && e.UserID != *f.UserID {
		return false
	}
	if f.VehicleID != nil && (e.VehicleID == nil || *e.VehicleID != *f.VehicleID) {
		return false
	}
	if f.Category != nil && e.Category != *f.Category {
		return false
	}
	return true
}

type ExpenseGroup struct {
	Key               string                                  `json:"key"`
	EntityID          *int64                                  `json:"entityID"`
	Date              domain.Date                             `json:"date"`
	Total             domain.Money                            `json:"total"`
	CategoryBreakdown map[domain.ExpenseCategory]domain.Money `json:"categoryBreakdown"`
	Count             int                                     `json:"count"`
	Entries           []*domain.Expense                       `json:"entries"`
}

type ExpenseReport struct {
	Groups         []ExpenseGroup                          `json:"groups"`
	Pagination     utils.Pagination                        `json:"pagination"`
	Totals         domain.Money                            `json:"totals"`
	CategoryTotals map[domain.ExpenseCategory]domain.Money `json:"categoryTotals"`
	Count          int                                     `json:"count"`
}

// GroupExpenses 与 GroupRevenue 相同，GroupByDriver 时按录入支出的用户分组
func GroupExpenses(expenses []*domain.Expense, w Window, f ExpenseFilter, by GroupBy, page utils.Page) ExpenseReport {
	report := ExpenseReport{CategoryTotals: map[domain.ExpenseCategory]domain.Money{}}
	index := map[groupKey]*ExpenseGroup{}

	for _, e := range expenses {
		if !w.Contains(e.Date) || !f.match(e) {
			continue
		}

		var entity *int64
		switch by {
		case GroupByDriver:
			entity = &e.UserID
		default:
			entity = e.VehicleID
		}

		k := newGroupKey(entity, e.Date)
		g, ok := index[k]
		if !ok {
			g = &ExpenseGroup{
				Key:               k.key,
				EntityID:          entity,
				Date:              e.Date,
				CategoryBreakdown: map[domain.ExpenseCategory]domain.Money{},
			}
			index[k] = g
		}

		g.Total += e.Amount
		g.CategoryBreakdown[e.Category] += e.Amount
		g.Count++
		g.Entries = append(g.Entries, e)

		report.Totals += e.Amount
		report.CategoryTotals[e.Category] += e.Amount
		report.Count++
	}

	groups := make([]ExpenseGroup, 0, len(index))
	for _, g := range index {
		sort.SliceStable(g.Entries, func(i, j int) bool {
			return g.Entries[i].CreatedAt.Before(g.Entries[j].CreatedAt)
		})
		if len(g.Entries) > maxGroupEntries {
			g.Entries = g.Entries[:maxGroupEntries]
		}
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groupLess(groups[i].Date, groups[i].Key, groups[j].Date, groups[j].Key)
	})

	report.Groups, report.Pagination = utils.Paginate(groups, page)
	return report
}

type groupKey struct {
	key  string
	date string
}

func newGroupKey(entity *int64, date domain.Date) groupKey {
	if entity == nil {
		return groupKey{key: NoVehicleKey, date: date.String()}
	}
	return groupKey{key: strconv.FormatInt(*entity, 10), date: date.String()}
}

// 日期倒序，同一天按 key 升序，数字 key 按数值比较
func groupLess(di domain.Date, ki string, dj domain.Date, kj string) bool {
	if !di.Equal(dj) {
		return di.After(dj)
	}
	ni, erri := strconv.ParseInt(ki, 10, 64)
	nj, errj := strconv.ParseInt(kj, 10, 64)
	switch {
	case erri == nil && errj == nil:
		return ni < nj
	case erri == nil:
		return true
	case errj == nil:
		return false
	default:
		return ki < kj
	}
}
