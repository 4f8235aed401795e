package light

import (
	"errors"
	"fmt"
	"time"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/types"
)

// ErrOldHeaderExpired is returned when the trust anchor is older than the
// trusting period. Only a new subjectively trusted anchor can recover.
type ErrOldHeaderExpired struct {
	At  time.Time
	Now time.Time
}

func (e ErrOldHeaderExpired) Error() string {
	return fmt.Sprintf("old header has expired at %v (now: %v)", e.At, e.Now)
}

func (e ErrOldHeaderExpired) Unwrap() error { return ibc.ErrClockFault }

// ErrNewValSetCantBeTrusted is returned when less than the trust level of the
// trusted validators signed a non-adjacent header. Bisection narrows the gap
// on this error.
type ErrNewValSetCantBeTrusted struct {
	Reason types.ErrNotEnoughVotingPowerSigned
}

func (e ErrNewValSetCantBeTrusted) Error() string {
	return fmt.Sprintf("cant trust new val set: %v", e.Reason)
}

func (e ErrNewValSetCantBeTrusted) Unwrap() error { return e.Reason }

// ErrInvalidHeader is returned for a malformed header or one not signed by
// more than 2/3 of its own validators.
type ErrInvalidHeader struct {
	Reason error
}

func (e ErrInvalidHeader) Error() string {
	return fmt.Sprintf("invalid header: %v", e.Reason)
}

// Unwrap returns the reason, or ErrMalformedInput when the reason carries
// no kind of its own.
func (e ErrInvalidHeader) Unwrap() error {
	if ibc.KindOf(e.Reason) == ibc.KindUnknown {
		return ibc.Wrap(ibc.ErrMalformedInput, e.Reason)
	}
	return e.Reason
}

// ErrVerificationFailed wraps the first failure of a bisection from From to
// To.
type ErrVerificationFailed struct {
	From   int64
	To     int64
	Reason error
}

// Unwrap returns underlying reason.
func (e ErrVerificationFailed) Unwrap() error {
	return e.Reason
}

func (e ErrVerificationFailed) Error() string {
	return fmt.Sprintf(
		"verify from #%d to #%d failed: %v",
		e.From, e.To, e.Reason)
}

// ErrBisectionDepthExceeded is returned when the gap between the trusted and
// target heights still cannot be bridged after the maximum number of
// bisection levels.
var ErrBisectionDepthExceeded = fmt.Errorf("%w: bisection depth exceeded", ibc.ErrThresholdNotMet)

var (
	errNonAdjacent = errors.New("headers must be non adjacent in height")
	errAdjacent    = errors.New("headers must be adjacent in height")
)
