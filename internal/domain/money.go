package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits stored in a Money value.
const MoneyScale = 4

const moneyFactor = 10000

// Money is a fixed-point amount stored as 1/100 of a cent.
// Money(123456) represents 12.3456.
type Money int64

const (
	MaxMoney Money = math.MaxInt64
	MinMoney Money = math.MinInt64
)

// ParseMoney parses a decimal string such as "12.34". Digits beyond the fourth
// fractional digit are dropped, not rounded.
func ParseMoney(s string) (Money, error) {
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("%w: too many decimal points in %q", ErrMoneyParse, s)
	}

	whole := parts[0]
	negative := false
	switch {
	case strings.HasPrefix(whole, "-"):
		negative = true
		whole = whole[1:]
	case strings.HasPrefix(whole, "+"):
		whole = whole[1:]
	}

	if whole == "" {
		return 0, fmt.Errorf("%w: missing integer part in %q", ErrMoneyParse, s)
	}
	if !isDigits(whole) {
		return 0, fmt.Errorf("%w: non-numeric integer part in %q", ErrMoneyParse, s)
	}

	frac := "0000"
	if len(parts) == 2 {
		if !isDigits(parts[1]) {
			return 0, fmt.Errorf("%w: non-numeric fractional part in %q", ErrMoneyParse, s)
		}
		frac = (parts[1] + "0000")[:MoneyScale]
	}

	units, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q out of range", ErrMoneyParse, s)
	}
	cents, err := strconv.ParseUint(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMoneyParse, s)
	}

	// The negative range reaches one unit further than the positive one.
	limit := uint64(math.MaxInt64)
	if negative {
		limit++
	}

	if units > (limit-cents)/moneyFactor {
		return 0, fmt.Errorf("%w: %q out of range", ErrMoneyParse, s)
	}
	magnitude := units*moneyFactor + cents

	if negative {
		if magnitude == uint64(math.MaxInt64)+1 {
			return MinMoney, nil
		}
		return -Money(magnitude), nil
	}

	return Money(magnitude), nil
}

// MustParseMoney is like ParseMoney but panics on error. Intended for tests
// and constants.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Add returns m+other. On overflow the result is clamped to MaxMoney, on
// underflow to MinMoney, and an error is returned; the clamped value must not
// be trusted.
func (m Money) Add(other Money) (Money, error) {
	if other > 0 && m > MaxMoney-other {
		return MaxMoney, fmt.Errorf("%w: add %s and %s", ErrMoneyOverflow, m, other)
	}

	if other < 0 && m < MinMoney-other {
		return MinMoney, fmt.Errorf("%w: add %s and %s", ErrMoneyUnderflow, m, other)
	}

	return m + other, nil
}

// Sub returns m-other with the same clamping rules as Add.
func (m Money) Sub(other Money) (Money, error) {
	if other == MinMoney {
		// -MinMoney is not representable
		if m >= 0 {
			return MaxMoney, fmt.Errorf("%w: sub %s from %s", ErrMoneyOverflow, other, m)
		}
		return m - other, nil
	}

	res, err := m.Add(-other)
	if err != nil {
		return res, fmt.Errorf("sub: %w", err)
	}
	return res, nil
}

// IsNegative reports whether m is below zero.
func (m Money) IsNegative() bool {
	return m < 0
}

// Decimal converts m to an arbitrary precision decimal without loss.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -MoneyScale)
}

// String renders m with exactly four fractional digits.
func (m Money) String() string {
	sign := ""
	magnitude := uint64(m)
	if m < 0 {
		sign = "-"
		magnitude = uint64(-(m + 1)) + 1
	}

	return fmt.Sprintf("%s%d.%04d", sign, magnitude/moneyFactor, magnitude%moneyFactor)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
