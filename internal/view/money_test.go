package view

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPesoFormatting(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "₱0.00"},
		{"300", "₱300.00"},
		{"1500.5", "₱1,500.50"},
		{"5800", "₱5,800.00"},
		{"1234567.891", "₱1,234,567.89"},
	}
	for _, tc := range cases {
		d, err := decimal.NewFromString(tc.in)
		require.NoError(t, err)
		require.Equal(t, tc.want, Peso(d), "input %s", tc.in)
	}
}

func TestAmountWithoutSign(t *testing.T) {
	d := decimal.RequireFromString("2500")
	require.Equal(t, "2,500.00", Amount(d))
}
