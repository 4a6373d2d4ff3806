package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DurationUnit names the unit of a user-entered duration.
type DurationUnit string

const (
	UnitSeconds DurationUnit = "seconds"
	UnitMinutes DurationUnit = "minutes"
	UnitHours   DurationUnit = "hours"
	UnitDays    DurationUnit = "days"
)

// Seconds returns the unit's length in seconds. Unknown units count as seconds.
func (u DurationUnit) Seconds() int64 {
	switch DurationUnit(strings.ToLower(string(u))) {
	case UnitMinutes:
		return 60
	case UnitHours:
		return 60 * 60
	case UnitDays:
		return 60 * 60 * 24
	default:
		return 1
	}
}

// NormalizeDuration converts a (value, unit) pair to whole seconds.
// The value must parse to a strictly positive number; fractional results are
// truncated and anything under one second is rejected with ErrInvalidDuration.
func NormalizeDuration(value string, unit DurationUnit) (int64, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil || !v.IsPositive() {
		return 0, ErrInvalidDuration
	}
	secs := v.Mul(decimal.NewFromInt(unit.Seconds())).Truncate(0)
	if !secs.IsPositive() || secs.GreaterThan(decimal.NewFromInt(MaxLockSeconds)) {
		return 0, ErrInvalidDuration
	}
	return secs.IntPart(), nil
}

// MaxLockSeconds is the longest lock or extension a single call may ask for.
const MaxLockSeconds = 1 << 52
