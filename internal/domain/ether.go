package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of wei digits in one ether.
const EtherDecimals = 18

var errTooManyDecimals = errors.New("too many decimal places")

// ParseEther converts a decimal ether string into wei.
func ParseEther(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, err
	}
	wei := d.Shift(EtherDecimals)
	if !wei.IsInteger() {
		return decimal.Zero, errTooManyDecimals
	}
	return wei, nil
}

// FormatEther renders a wei amount in ether, keeping at least one decimal.
func FormatEther(wei decimal.Decimal) string {
	s := wei.Shift(-EtherDecimals).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
