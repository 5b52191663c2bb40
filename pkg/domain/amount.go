package domain

import "math"

// Amounts are integers in the smallest currency unit; timestamps are unix
// seconds. Both use the same checked arithmetic: negative inputs, wrap-around
// and underflow all fail instead of producing a silently wrong balance.

func CheckedAdd(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, ErrAmountOverflow
	}
	if a > math.MaxInt64-b {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}

func CheckedSub(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, ErrAmountOverflow
	}
	if b > a {
		return 0, ErrAmountOverflow
	}
	return a - b, nil
}
