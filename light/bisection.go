package light

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/libs/log"
	tmmath "github.com/lightibc/lightibc/libs/math"
	"github.com/lightibc/lightibc/light/provider"
	"github.com/lightibc/lightibc/types"
)

const (
	defaultMaxClockDrift     = 10 * time.Second
	defaultMaxBisectionDepth = 32
)

// Status is the state of a header on its way from untrusted to trusted.
type Status uint8

const (
	StatusUnverified Status = iota
	StatusDirectlyVerified
	StatusBisectionInProgress
	StatusVerified
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUnverified:
		return "unverified"
	case StatusDirectlyVerified:
		return "directly_verified"
	case StatusBisectionInProgress:
		return "bisection_in_progress"
	case StatusVerified:
		return "verified"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// TrustedBlock is a header the caller already trusts together with the
// validator set that signs the block after it.
type TrustedBlock struct {
	*types.SignedHeader
	NextValidators *types.ValidatorSet
}

// Step is a single verification attempt between two heights.
type Step struct {
	From   int64
	To     int64
	Status Status
	Err    error
}

// Result of VerifyToHeight. Verified lists the light blocks that became
// trusted, in the order they were verified; the target is last.
type Result struct {
	Status   Status
	Trace    []Step
	Verified []*types.LightBlock
}

// Target returns the verified target block or nil.
func (r Result) Target() *types.LightBlock {
	if r.Status != StatusDirectlyVerified && r.Status != StatusVerified {
		return nil
	}
	return r.Verified[len(r.Verified)-1]
}

// Option sets a parameter for the bisector.
type Option func(*Bisector)

// TrustLevel option sets the fraction of the trusted validator set that must
// sign a non-adjacent header. Default: 1/3.
func TrustLevel(lvl tmmath.Fraction) Option {
	return func(b *Bisector) {
		b.trustLevel = lvl
	}
}

// MaxClockDrift defines how much new header's time can drift into
// the future relative to the verifier's clock. Default: 10s.
func MaxClockDrift(d time.Duration) Option {
	return func(b *Bisector) {
		b.maxClockDrift = d
	}
}

// MaxBisectionDepth bounds how many times a range may be split before
// verification gives up. Default: 32.
func MaxBisectionDepth(depth int) Option {
	return func(b *Bisector) {
		b.maxDepth = depth
	}
}

// Logger option can be used to set a logger for the bisector.
func Logger(l log.Logger) Option {
	return func(b *Bisector) {
		b.logger = l
	}
}

// Bisector extends trust from a trusted header to a later one by skipping
// verification, splitting the range at its midpoint whenever the trusted
// validators cannot vouch for the untrusted header directly.
//
// A Bisector holds no trust state of its own; every call starts from the
// TrustedBlock it is given, so concurrent calls are safe.
type Bisector struct {
	chainID        string
	trustingPeriod time.Duration
	trustLevel     tmmath.Fraction
	maxClockDrift  time.Duration
	maxDepth       int
	provider       provider.Provider
	logger         log.Logger
}

// NewBisector returns a bisector fetching light blocks for chainID from p.
func NewBisector(
	chainID string,
	trustingPeriod time.Duration,
	p provider.Provider,
	options ...Option,
) (*Bisector, error) {
	b := &Bisector{
		chainID:        chainID,
		trustingPeriod: trustingPeriod,
		trustLevel:     DefaultTrustLevel,
		maxClockDrift:  defaultMaxClockDrift,
		maxDepth:       defaultMaxBisectionDepth,
		provider:       p,
		logger:         log.NewNopLogger(),
	}

	for _, o := range options {
		o(b)
	}

	if err := ValidateTrustLevel(b.trustLevel); err != nil {
		return nil, err
	}
	if b.trustingPeriod <= 0 {
		return nil, fmt.Errorf("%w: trusting period must be positive", ibc.ErrMalformedInput)
	}
	if b.maxDepth <= 0 {
		return nil, fmt.Errorf("%w: max bisection depth must be positive", ibc.ErrMalformedInput)
	}
	if b.provider == nil {
		return nil, fmt.Errorf("%w: nil provider", ibc.ErrMalformedInput)
	}
	if pID := b.provider.ChainID(); pID != chainID {
		return nil, fmt.Errorf("%w: provider serves chain %q, not %q", ibc.ErrMalformedInput, pID, chainID)
	}

	return b, nil
}

// VerifyToHeight verifies the header at height starting from trusted. The
// returned Result always carries the trace of attempted steps; on failure
// Status is StatusFailed and the error is an ErrVerificationFailed.
//
// Nothing is cached between calls, so an error (including cancellation of
// ctx) leaves no partially trusted state behind.
func (b *Bisector) VerifyToHeight(
	ctx context.Context,
	trusted TrustedBlock,
	height int64,
	now time.Time,
) (Result, error) {
	res := Result{Status: StatusUnverified}

	if trusted.SignedHeader == nil || trusted.Header == nil || trusted.NextValidators.IsNilOrEmpty() {
		res.Status = StatusFailed
		return res, fmt.Errorf("%w: trusted block is incomplete", ibc.ErrMalformedInput)
	}
	if height <= trusted.Height {
		res.Status = StatusFailed
		return res, ErrVerificationFailed{
			From: trusted.Height,
			To:   height,
			Reason: fmt.Errorf("%w: target height %d is not above trusted height %d",
				ibc.ErrStaleUpdate, height, trusted.Height),
		}
	}

	target, err := b.lightBlock(ctx, height)
	if err == nil {
		res.Status = StatusBisectionInProgress
		err = b.verifyRange(ctx, trusted, target, now, 0, &res)
	}
	if err != nil {
		res.Status = StatusFailed
		b.logger.Error("failed to verify header", "from", trusted.Height, "to", height, "err", err)
		return res, ErrVerificationFailed{From: trusted.Height, To: height, Reason: err}
	}

	if len(res.Trace) == 1 {
		res.Status = StatusDirectlyVerified
	} else {
		res.Status = StatusVerified
	}
	b.logger.Info("verified header", "height", height, "hash", target.Hash(), "steps", len(res.Trace))
	return res, nil
}

func (b *Bisector) verifyRange(
	ctx context.Context,
	trusted TrustedBlock,
	untrusted *types.LightBlock,
	now time.Time,
	depth int,
	res *Result,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	step := Step{From: trusted.Height, To: untrusted.Height}
	b.logger.Debug("verify header", "from", step.From, "to", step.To, "depth", depth)

	err := Verify(trusted.SignedHeader, trusted.NextValidators, untrusted.SignedHeader, untrusted.ValidatorSet,
		b.trustingPeriod, now, b.maxClockDrift, b.trustLevel)

	var cantTrust ErrNewValSetCantBeTrusted
	switch {
	case err == nil:
		step.Status = StatusVerified
		res.Trace = append(res.Trace, step)
		res.Verified = append(res.Verified, untrusted)
		return nil
	case errors.As(err, &cantTrust):
		step.Status, step.Err = StatusBisectionInProgress, err
		res.Trace = append(res.Trace, step)
	default:
		step.Status, step.Err = StatusFailed, err
		res.Trace = append(res.Trace, step)
		return err
	}

	if depth >= b.maxDepth {
		return ErrBisectionDepthExceeded
	}

	// Adjacent headers never fail the trust check, so the gap here is at
	// least two and mid lies strictly between.
	mid := trusted.Height + (untrusted.Height-trusted.Height)/2
	midBlock, err := b.lightBlock(ctx, mid)
	if err != nil {
		return err
	}
	if err := b.verifyRange(ctx, trusted, midBlock, now, depth+1, res); err != nil {
		return err
	}

	midTrusted, err := b.trustedBlock(ctx, midBlock)
	if err != nil {
		return err
	}
	return b.verifyRange(ctx, midTrusted, untrusted, now, depth+1, res)
}

// trustedBlock pairs a just verified block with the validator set of its
// successor, checked against the block's NextValidatorsHash.
func (b *Bisector) trustedBlock(ctx context.Context, lb *types.LightBlock) (TrustedBlock, error) {
	next, err := b.lightBlock(ctx, lb.Height+1)
	if err != nil {
		return TrustedBlock{}, err
	}
	if !bytes.Equal(next.ValidatorSet.Hash(), lb.NextValidatorsHash) {
		return TrustedBlock{}, fmt.Errorf("%w: %w", ibc.ErrMalformedInput, provider.ErrBadLightBlock{
			Reason: fmt.Errorf("validators at height %d do not match next validators hash %X of height %d",
				next.Height, lb.NextValidatorsHash, lb.Height),
		})
	}
	return TrustedBlock{SignedHeader: lb.SignedHeader, NextValidators: next.ValidatorSet}, nil
}

func (b *Bisector) lightBlock(ctx context.Context, height int64) (*types.LightBlock, error) {
	lb, err := b.provider.LightBlock(ctx, height)
	switch {
	case errors.Is(err, provider.ErrLightBlockNotFound), errors.Is(err, provider.ErrHeightTooHigh):
		return nil, fmt.Errorf("%w: height %d: %w", ibc.ErrTargetNotFound, height, err)
	case err != nil:
		return nil, err
	}

	if lb == nil {
		return nil, fmt.Errorf("%w: %w", ibc.ErrMalformedInput, provider.ErrBadLightBlock{
			Reason: fmt.Errorf("nil light block at height %d", height)})
	}
	if err := lb.ValidateBasic(b.chainID); err != nil {
		return nil, fmt.Errorf("%w: %w", ibc.ErrMalformedInput, provider.ErrBadLightBlock{Reason: err})
	}
	if lb.Height != height {
		return nil, fmt.Errorf("%w: %w", ibc.ErrMalformedInput, provider.ErrBadLightBlock{
			Reason: fmt.Errorf("expected height %d, got %d", height, lb.Height)})
	}
	return lb, nil
}
