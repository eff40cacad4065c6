package domain

import (
	"slices"
	"time"
)

type RevenueSource string

const (
	RevenueSourceBolt    RevenueSource = "bolt"
	RevenueSourceUber    RevenueSource = "uber"
	RevenueSourceOffTrip RevenueSource = "off_trip"
)

var RevenueSources = []RevenueSource{RevenueSourceBolt, RevenueSourceUber, RevenueSourceOffTrip}

func (s RevenueSource) Valid() bool {
	return slices.Contains(RevenueSources, s)
}

// Platform 表示来自网约车平台的营收，每个 (司机, 班次, 来源) 最多一条
func (s RevenueSource) Platform() bool {
	return s == RevenueSourceBolt || s == RevenueSourceUber
}

type RevenueRecord struct {
	ID                 int64         `json:"id"`
	DriverID           int64         `json:"driverID"`
	ShiftAssignmentID  *int64        `json:"shiftAssignmentID"`
	VehicleID          *int64        `json:"vehicleID"`
	Source             RevenueSource `json:"source"`
	TotalRevenue       Money         `json:"totalRevenue"`
	TotalProfit        Money         `json:"totalProfit"`
	Reconciled         bool          `json:"reconciled"`
	RealizedAt         time.Time     `json:"realizedAt"`
	EarningsScreenshot *string       `json:"earningsScreenshot"`
	CreatedAt          time.Time     `json:"createdAt"`
	Version            int32         `json:"-"`
}

type ExpenseCategory string

const (
	ExpenseCategoryCharging    ExpenseCategory = "charging"
	ExpenseCategoryMaintenance ExpenseCategory = "maintenance"
	ExpenseCategoryToll        ExpenseCategory = "toll"
	ExpenseCategoryInsurance   ExpenseCategory = "insurance"
	ExpenseCategoryOther       ExpenseCategory = "other"
)

var ExpenseCategories = []ExpenseCategory{
	ExpenseCategoryCharging,
	ExpenseCategoryMaintenance,
	ExpenseCategoryToll,
	ExpenseCategoryInsurance,
	ExpenseCategoryOther,
}

func (c ExpenseCategory) Valid() bool {
	return slices.Contains(ExpenseCategories, c)
}

type Expense struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userID"`
	VehicleID   *int64          `json:"vehicleID"`
	Amount      Money           `json:"amount"`
	Category    ExpenseCategory `json:"category"`
	Description *string         `json:"description"`
	Date        Date            `json:"date"`
	ReceiptKey  *string         `json:"receiptKey"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type PayrollRecord struct {
	ID              int64     `json:"id"`
	DriverID        int64     `json:"driverID"`
	PaidByUserID    int64     `json:"paidByUserID"`
	AmountPaid      Money     `json:"amountPaid"`
	PeriodStartDate Date      `json:"periodStartDate"`
	PeriodEndDate   Date      `json:"periodEndDate"`
	PaidAt          time.Time `json:"paidAt"`
	Notes           *string   `json:"notes"`
	CreatedAt       time.Time `json:"createdAt"`
}

// RevenueQuery 描述营收记录的范围查询，时间区间为左闭右开
type RevenueQuery struct {
	DriverID  *int64
	VehicleID *int64
	Source    *RevenueSource
	From      *time.Time
	To        *time.Time
}

// ExpenseQuery 中的日期区间两端都包含
type ExpenseQuery struct {
	UserID    *int64
	VehicleID *int64
	Category  *ExpenseCategory
	From      *Date
	To        *Date
}
