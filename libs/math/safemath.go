package math

import (
	"errors"
	"math"
	"math/bits"
)

var ErrOverflowInt32 = errors.New("int32 overflow")
var ErrOverflowUint32 = errors.New("uint32 overflow")
var ErrOverflowUint64 = errors.New("uint64 overflow")
var ErrOverflowInt64 = errors.New("int64 overflow")

// SafeAddInt64 adds two int64 integers. The second return value is true if
// the addition overflowed.
func SafeAddInt64(a, b int64) (int64, bool) {
	if b > 0 && (a > math.MaxInt64-b) {
		return -1, true
	} else if b < 0 && (a < math.MinInt64-b) {
		return -1, true
	}
	return a + b, false
}

// SafeMulInt64 multiplies two int64 integers. The second return value is true
// if the multiplication overflowed.
func SafeMulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}

	absOfB := b
	if b < 0 {
		absOfB = -b
	}

	absOfA := a
	if a < 0 {
		absOfA = -a
	}

	if absOfA > math.MaxInt64/absOfB {
		return 0, true
	}

	return a * b, false
}

// SafeAddUint64 adds two uint64 integers and returns ErrOverflowUint64 if the
// sum does not fit.
func SafeAddUint64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflowUint64
	}
	return sum, nil
}

// SafeConvertUint32 takes an int64 and checks if it overflows.
func SafeConvertUint32(a int64) (uint32, error) {
	if a > math.MaxUint32 || a < 0 {
		return 0, ErrOverflowUint32
	}
	return uint32(a), nil
}

// SafeConvertInt64 takes an uint64 and checks if it overflows.
func SafeConvertInt64(a uint64) (int64, error) {
	if a > math.MaxInt64 {
		return 0, ErrOverflowInt64
	}
	return int64(a), nil
}

// SafeConvertUint64 takes an int64 and checks if it is negative.
func SafeConvertUint64(a int64) (uint64, error) {
	if a < 0 {
		return 0, ErrOverflowUint64
	}
	return uint64(a), nil
}

func mulUint64(a, b uint64) (hi, lo uint64) {
	return bits.Mul64(a, b)
}
