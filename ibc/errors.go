package ibc

import (
	"errors"
	"fmt"
)

// Error kinds. Every verification error returned by this module wraps
// exactly one of these, so callers classify failures with errors.Is.
var (
	ErrMalformedInput           = errors.New("malformed input")
	ErrThresholdNotMet          = errors.New("threshold not met")
	ErrStaleUpdate              = errors.New("stale update")
	ErrAuthoritySetMismatch     = errors.New("authority set mismatch")
	ErrClockFault               = errors.New("clock fault")
	ErrClientFrozen             = errors.New("client frozen")
	ErrProofVerificationFailure = errors.New("proof verification failure")
	ErrTargetNotFound           = errors.New("target not found")
)

// Kind enumerates the error taxonomy.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindMalformedInput
	KindThresholdNotMet
	KindStaleUpdate
	KindAuthoritySetMismatch
	KindClockFault
	KindClientFrozen
	KindProofVerificationFailure
	KindTargetNotFound
)

var kinds = []struct {
	kind Kind
	err  error
}{
	// frozen first: a frozen client error may wrap the cause that froze it
	{KindClientFrozen, ErrClientFrozen},
	{KindMalformedInput, ErrMalformedInput},
	{KindThresholdNotMet, ErrThresholdNotMet},
	{KindStaleUpdate, ErrStaleUpdate},
	{KindAuthoritySetMismatch, ErrAuthoritySetMismatch},
	{KindClockFault, ErrClockFault},
	{KindProofVerificationFailure, ErrProofVerificationFailure},
	{KindTargetNotFound, ErrTargetNotFound},
}

// KindOf classifies err. Errors outside the taxonomy are KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

func (k Kind) String() string {
	switch k {
	case KindMalformedInput:
		return "malformed_input"
	case KindThresholdNotMet:
		return "threshold_not_met"
	case KindStaleUpdate:
		return "stale_update"
	case KindAuthoritySetMismatch:
		return "authority_set_mismatch"
	case KindClockFault:
		return "clock_fault"
	case KindClientFrozen:
		return "client_frozen"
	case KindProofVerificationFailure:
		return "proof_verification_failure"
	case KindTargetNotFound:
		return "target_not_found"
	default:
		return "unknown"
	}
}

// Retryable reports whether a relayer may retry with different evidence
// later. Frozen clients and authority set mismatches need governance.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindThresholdNotMet, KindStaleUpdate, KindClockFault:
		return true
	default:
		return false
	}
}

// Wrap tags err with kind.
func Wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Wrapf tags a formatted error with kind.
func Wrapf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
