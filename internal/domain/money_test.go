package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   string
		want Money
	}{
		{"12.34", 1234},
		{"12,34", 1234},
		{"0", 0},
		{".5", 50},
		{"-0.5", -50},
		{"+3", 300},
		{"12.345", 1235},
		{"12.344", 1234},
		{" 7.1 ", 710},
	}
	for _, c := range cases {
		got, err := ParseMoney(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}

	for _, bad := range []string{"", "abc", "1.2.3", "1e3", "--1"} {
		_, err := ParseMoney(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, bad)
	}
}

func TestMoneyRounding(t *testing.T) {
	// 15% of 1.05 = 0.1575 -> 0.16
	assert.Equal(t, Money(16), Money(105).MulRate(1500))
	assert.Equal(t, Money(-16), Money(-105).MulRate(1500))
	assert.Equal(t, Money(0), Money(3).MulRate(1000))

	assert.Equal(t, Money(334), Money(1001).DivRound(3))
	assert.Equal(t, Money(2), Money(3).DivRound(2))
	assert.Equal(t, Money(0), Money(100).DivRound(0))
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "12.05", Money(1205).String())
	assert.Equal(t, "-0.07", Money(-7).String())
	assert.Equal(t, "0.00", Money(0).String())
}

func TestMoneyJSON(t *testing.T) {
	var v struct {
		Amount Money `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"19.99"}`), &v))
	assert.Equal(t, Money(1999), v.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"amount":20.5}`), &v))
	assert.Equal(t, Money(2050), v.Amount)

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":20.50}`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"x"}`), &v))
}

func TestRateFromFloat(t *testing.T) {
	assert.Equal(t, Rate(1500), RateFromFloat(0.15))
	assert.InDelta(t, 0.2, Rate(2000).Float(), 1e-9)
}
