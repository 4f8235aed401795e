package types

import (
	"fmt"

	"github.com/lightibc/lightibc/ibc"
)

// ErrInvalidCommitHeight is returned when we encounter a commit with an
// unexpected height.
type ErrInvalidCommitHeight struct {
	Expected int64
	Actual   int64
}

func NewErrInvalidCommitHeight(expected, actual int64) ErrInvalidCommitHeight {
	return ErrInvalidCommitHeight{
		Expected: expected,
		Actual:   actual,
	}
}

func (e ErrInvalidCommitHeight) Error() string {
	return fmt.Sprintf("invalid commit -- wrong height: %v vs %v", e.Expected, e.Actual)
}

func (e ErrInvalidCommitHeight) Unwrap() error { return ibc.ErrMalformedInput }

// ErrInvalidCommitSignatures is returned when we encounter a commit where
// the number of signatures doesn't match the number of validators.
type ErrInvalidCommitSignatures struct {
	Expected int
	Actual   int
}

func NewErrInvalidCommitSignatures(expected, actual int) ErrInvalidCommitSignatures {
	return ErrInvalidCommitSignatures{
		Expected: expected,
		Actual:   actual,
	}
}

func (e ErrInvalidCommitSignatures) Error() string {
	return fmt.Sprintf("invalid commit -- wrong set size: %v vs %v", e.Expected, e.Actual)
}

func (e ErrInvalidCommitSignatures) Unwrap() error { return ibc.ErrMalformedInput }

// ErrNotEnoughVotingPowerSigned is returned when not enough validators signed
// a commit.
type ErrNotEnoughVotingPowerSigned struct {
	Got   int64
	Total int64
	// Invalid counts signatures that did not verify and were left out of Got.
	Invalid int
}

func (e ErrNotEnoughVotingPowerSigned) Error() string {
	return fmt.Sprintf("invalid commit -- insufficient voting power: got %d of %d (%d invalid signatures)",
		e.Got, e.Total, e.Invalid)
}

func (e ErrNotEnoughVotingPowerSigned) Unwrap() error { return ibc.ErrThresholdNotMet }
