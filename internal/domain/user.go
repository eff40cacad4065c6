package domain

import (
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleDriver  Role = "driver"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}

// DriverTier 决定司机工资的分成档位
type DriverTier string

const (
	DriverTier1 DriverTier = "tier_1"
	DriverTier2 DriverTier = "tier_2"
)

func (t DriverTier) Valid() bool {
	switch t {
	case DriverTier1, DriverTier2:
		return true
	default:
		return false
	}
}

// Driver 是用户的司机档案，一个用户最多拥有一个
type Driver struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userID"`
	FullName  string     `json:"fullName"`
	Tier      DriverTier `json:"tier"`
	City      string     `json:"city"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Vehicle struct {
	ID          int64     `json:"id"`
	PlateNumber string    `json:"plateNumber"`
	Model       string    `json:"model"`
	City        string    `json:"city"`
	CreatedAt   time.Time `json:"createdAt"`
}
