package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		input string
		want  domain.Money
	}{
		{"10.50", 1050},
		{"0.01", 1},
		{"100", 10000},
		{"7.5", 750},
		{"-3.25", -325},
		{"0", 0},
	}
	for _, tc := range cases {
		got, err := domain.ParseMoney(tc.input)
		assert.NoError(t, err, tc.input)
		assert.Equal(t, tc.want, got, tc.input)
	}
}

func TestParseMoneyRejectsExcessPrecision(t *testing.T) {
	_, err := domain.ParseMoney("10.505")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "decimal places")
}

func TestParseMoneyRejectsNonNumeric(t *testing.T) {
	_, err := domain.ParseMoney("ten dollars")
	assert.Error(t, err)
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "10.50", domain.Money(1050).String())
	assert.Equal(t, "0.05", domain.Money(5).String())
	assert.Equal(t, "-2.00", domain.Money(-200).String())
	assert.Equal(t, "0.00", domain.Money(0).String())
}

func TestMoneyRoundTrip(t *testing.T) {
	for _, amount := range []domain.Money{1, 99, 1050, 123456789} {
		parsed, err := domain.ParseMoney(amount.String())
		assert.NoError(t, err)
		assert.Equal(t, amount, parsed)
	}
}

func TestMoneyNeg(t *testing.T) {
	assert.Equal(t, domain.Money(-1050), domain.Money(1050).Neg())
	assert.True(t, domain.Money(1).IsPositive())
	assert.False(t, domain.Money(0).IsPositive())
	assert.False(t, domain.Money(-1).IsPositive())
}
