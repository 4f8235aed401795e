package ibc

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrNotEnoughTimeElapsed is returned when the time delay since the
	// consensus state was processed has not passed yet.
	ErrNotEnoughTimeElapsed = fmt.Errorf("%w: not enough time elapsed", ErrClockFault)
	// ErrInsufficientHeight is returned when the block delay since the
	// consensus state was processed has not passed yet.
	ErrInsufficientHeight = fmt.Errorf("%w: insufficient height", ErrStaleUpdate)

	errNegativeDelay = errors.New("negative delay period")
)

// HasDelayElapsed reports whether both the time and the block delay have
// passed since the client update at (updateTime, updateHeight). Boundaries
// are inclusive: current == update + delay counts as elapsed. A delay that
// has not elapsed yet is routine flow control and returns false, not an
// error; errors are reserved for inputs no wait could satisfy.
func HasDelayElapsed(
	currentTime time.Time,
	currentHeight Height,
	updateTime time.Time,
	updateHeight Height,
	delayTime time.Duration,
	delayBlocks uint64,
) (bool, error) {
	earliestTime, earliestHeight, err := earliestValid(updateTime, updateHeight, delayTime, delayBlocks)
	if err != nil {
		return false, err
	}

	if currentTime.Before(earliestTime) {
		return false, nil
	}
	if currentHeight.LT(earliestHeight) {
		return false, nil
	}
	return true, nil
}

// VerifyDelayPassed is HasDelayElapsed for callers that need the failing
// dimension: it returns ErrNotEnoughTimeElapsed or ErrInsufficientHeight.
func VerifyDelayPassed(
	currentTime time.Time,
	currentHeight Height,
	updateTime time.Time,
	updateHeight Height,
	delayTime time.Duration,
	delayBlocks uint64,
) error {
	earliestTime, earliestHeight, err := earliestValid(updateTime, updateHeight, delayTime, delayBlocks)
	if err != nil {
		return err
	}

	if currentTime.Before(earliestTime) {
		return fmt.Errorf("%w: current time %s < earliest %s",
			ErrNotEnoughTimeElapsed, currentTime.UTC(), earliestTime.UTC())
	}
	if currentHeight.LT(earliestHeight) {
		return fmt.Errorf("%w: current height %s < earliest %s",
			ErrInsufficientHeight, currentHeight, earliestHeight)
	}
	return nil
}

func earliestValid(updateTime time.Time, updateHeight Height, delayTime time.Duration, delayBlocks uint64) (time.Time, Height, error) {
	if delayTime < 0 {
		return time.Time{}, Height{}, fmt.Errorf("%w: %v", ErrMalformedInput, errNegativeDelay)
	}
	if updateHeight.RevisionHeight > math.MaxUint64-delayBlocks {
		return time.Time{}, Height{}, fmt.Errorf("%w: block delay %d overflows height %s",
			ErrMalformedInput, delayBlocks, updateHeight)
	}
	earliestHeight := NewHeight(updateHeight.RevisionNumber, updateHeight.RevisionHeight+delayBlocks)
	return updateTime.Add(delayTime), earliestHeight, nil
}
