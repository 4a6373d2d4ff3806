package domain

import "math"

// ClampUnlock never lets an unlock time move backward: it returns the later
// of the current unlock time and the proposed one. Deposit and extend both go
// through it.
func ClampUnlock(current, proposed int64) int64 {
	if proposed < current {
		return current
	}
	return proposed
}

// DepositUnlockTime is max(now+lockSeconds, current).
func DepositUnlockTime(now, lockSeconds, current int64) int64 {
	return ClampUnlock(current, addSaturating(now, lockSeconds))
}

// ExtendedUnlockTime is max(now, current)+extraSeconds. An expired lock
// restarts from now; an active one grows on top of its remaining time.
func ExtendedUnlockTime(now, extraSeconds, current int64) int64 {
	return addSaturating(ClampUnlock(current, now), extraSeconds)
}

// addSaturating adds a non-negative d to t, pinning at math.MaxInt64 instead
// of wrapping negative.
func addSaturating(t, d int64) int64 {
	if d > 0 && t > math.MaxInt64-d {
		return math.MaxInt64
	}
	return t + d
}
