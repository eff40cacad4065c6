package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money 以分为单位保存金额，避免浮点误差影响工资与营收的汇总
type Money int64

// Rate 以万分之一（basis point）为单位保存比例，1500 表示 15%
type Rate int64

const rateScale = 10000

var ErrInvalidAmount = errors.New("invalid amount")

// ParseMoney 解析形如 "12.34" 或 "12,34" 的十进制金额，第三位小数四舍五入
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || iv > math.MaxInt64/100-1 {
		return 0, ErrInvalidAmount
	}

	var cents int64
	if len(fracPart) > 0 {
		cents = int64(fracPart[0]-'0') * 10
	}
	if len(fracPart) > 1 {
		cents += int64(fracPart[1] - '0')
	}
	if len(fracPart) > 2 && fracPart[2] >= '5' {
		cents++
	}

	total := iv*100 + cents
	if negative {
		total = -total
	}
	return Money(total), nil
}

// MoneyFromFloat 仅用于配置项等少量场景，金额计算一律使用分
func MoneyFromFloat(f float64) Money {
	return Money(math.Round(f * 100))
}

func RateFromFloat(f float64) Rate {
	return Rate(math.Round(f * rateScale))
}

func (m Money) Float() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MulRate 按比例计算金额，四舍五入到分（远离零方向）
func (m Money) MulRate(r Rate) Money {
	return Money(divRound(int64(m)*int64(r), rateScale))
}

// DivRound 平均值计算使用，n <= 0 时返回 0
func (m Money) DivRound(n int64) Money {
	if n <= 0 {
		return 0
	}
	return Money(divRound(int64(m), n))
}

func divRound(p, q int64) int64 {
	quo, rem := p/q, p%q
	switch {
	case rem*2 >= q:
		quo++
	case rem*2 <= -q:
		quo--
	}
	return quo
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		return nil
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (r Rate) Float() float64 {
	return float64(r) / rateScale
}
