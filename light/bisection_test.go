package light_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/internal/test/factory"
	"github.com/lightibc/lightibc/libs/log"
	"github.com/lightibc/lightibc/light"
	"github.com/lightibc/lightibc/light/provider"
	mockp "github.com/lightibc/lightibc/light/provider/mock"
	provider_mocks "github.com/lightibc/lightibc/light/provider/mocks"
)

const (
	bisectionChainID = "bisection-chain"
	trustingPeriod   = 24 * time.Hour
)

func trustedAt(c *factory.Chain, height int64) light.TrustedBlock {
	return light.TrustedBlock{
		SignedHeader:   c.Blocks[height].SignedHeader,
		NextValidators: c.NextValidators(height),
	}
}

func newBisector(t *testing.T, p provider.Provider, opts ...light.Option) *light.Bisector {
	t.Helper()
	opts = append(opts, light.Logger(log.TestingLogger()))
	b, err := light.NewBisector(bisectionChainID, trustingPeriod, p, opts...)
	require.NoError(t, err)
	return b
}

func steps(res light.Result) []string {
	out := make([]string, len(res.Trace))
	for i, s := range res.Trace {
		out[i] = fmt.Sprintf("%d->%d:%v", s.From, s.To, s.Status)
	}
	return out
}

// The validator set is replaced entirely after height 105: headers up to 105
// are signed by set A, 105 announces set B, and B signs every later header.
func TestBisectionThroughValidatorSetChange(t *testing.T) {
	setA := factory.GenPrivKeys("set-a", 4)
	setB := factory.GenPrivKeys("set-b", 4)
	chain := factory.GenChain(t, bisectionChainID, 100, 110, func(h int64) factory.PrivKeys {
		if h <= 105 {
			return setA
		}
		return setB
	})
	p := mockp.New(bisectionChainID, chain.Blocks)
	b := newBisector(t, p)

	res, err := b.VerifyToHeight(context.Background(), trustedAt(chain, 100), 110, chain.Time(111))
	require.NoError(t, err)

	assert.Equal(t, light.StatusVerified, res.Status)
	assert.Equal(t, []string{
		"100->110:bisection_in_progress",
		"100->105:verified",
		"105->110:verified",
	}, steps(res))
	require.Len(t, res.Verified, 2)
	assert.EqualValues(t, 105, res.Verified[0].Height)
	assert.Equal(t, chain.Blocks[110], res.Target())
	assert.Equal(t, []int64{110, 105, 106}, p.Requests())

	var cantTrust light.ErrNewValSetCantBeTrusted
	require.True(t, errors.As(res.Trace[0].Err, &cantTrust))
	assert.EqualValues(t, 0, cantTrust.Reason.Got)
}

func TestBisectionDirect(t *testing.T) {
	keys := factory.GenPrivKeys("stable", 4)
	// half of the set rotates out halfway: the remaining half still holds more than 1/3
	rotated := append(factory.PrivKeys{}, keys[2:]...).Extend("fresh", 2)
	chain := factory.GenChain(t, bisectionChainID, 1, 20, func(h int64) factory.PrivKeys {
		if h > 10 {
			return rotated
		}
		return keys
	})
	b := newBisector(t, mockp.New(bisectionChainID, chain.Blocks))

	res, err := b.VerifyToHeight(context.Background(), trustedAt(chain, 1), 20, chain.Time(21))
	require.NoError(t, err)
	assert.Equal(t, light.StatusDirectlyVerified, res.Status)
	assert.Equal(t, []string{"1->20:verified"}, steps(res))

	res, err = b.VerifyToHeight(context.Background(), trustedAt(chain, 1), 2, chain.Time(21))
	require.NoError(t, err)
	assert.Equal(t, light.StatusDirectlyVerified, res.Status)
}

func TestBisectionRotatingEveryBlock(t *testing.T) {
	keysAt := func(h int64) factory.PrivKeys { return factory.GenPrivKeys(fmt.Sprintf("height-%d", h), 3) }
	chain := factory.GenChain(t, bisectionChainID, 1, 9, keysAt)

	b := newBisector(t, mockp.New(bisectionChainID, chain.Blocks))
	res, err := b.VerifyToHeight(context.Background(), trustedAt(chain, 1), 9, chain.Time(10))
	require.NoError(t, err)
	assert.Equal(t, light.StatusVerified, res.Status)

	// only adjacent steps can succeed when no validator survives a block
	var heights []int64
	for _, lb := range res.Verified {
		heights = append(heights, lb.Height)
	}
	assert.Equal(t, []int64{2, 3, 4, 5, 6, 7, 8, 9}, heights)

	shallow := newBisector(t, mockp.New(bisectionChainID, chain.Blocks), light.MaxBisectionDepth(1))
	res, err = shallow.VerifyToHeight(context.Background(), trustedAt(chain, 1), 9, chain.Time(10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, light.ErrBisectionDepthExceeded), err)
	assert.Equal(t, light.StatusFailed, res.Status)
	assert.Nil(t, res.Target())
}

func TestBisectionErrors(t *testing.T) {
	keys := factory.GenPrivKeys("errors", 4)
	chain := factory.GenChain(t, bisectionChainID, 1, 10, func(int64) factory.PrivKeys { return keys })

	t.Run("stale target", func(t *testing.T) {
		b := newBisector(t, mockp.New(bisectionChainID, chain.Blocks))
		res, err := b.VerifyToHeight(context.Background(), trustedAt(chain, 5), 5, chain.Time(11))
		assert.Equal(t, ibc.KindStaleUpdate, ibc.KindOf(err), err)
		assert.Equal(t, light.StatusFailed, res.Status)
	})

	t.Run("missing target", func(t *testing.T) {
		b := newBisector(t, mockp.New(bisectionChainID, chain.Blocks))
		_, err := b.VerifyToHeight(context.Background(), trustedAt(chain, 5), 50, chain.Time(11))
		assert.Equal(t, ibc.KindTargetNotFound, ibc.KindOf(err), err)
		assert.True(t, errors.Is(err, provider.ErrHeightTooHigh), err)
	})

	t.Run("expired trust", func(t *testing.T) {
		b := newBisector(t, mockp.New(bisectionChainID, chain.Blocks))
		res, err := b.VerifyToHeight(context.Background(), trustedAt(chain, 1), 10, chain.Time(1).Add(trustingPeriod))
		assert.Equal(t, ibc.KindClockFault, ibc.KindOf(err), err)
		require.Len(t, res.Trace, 1)
		assert.Equal(t, light.StatusFailed, res.Trace[0].Status)
	})

	t.Run("provider does not respond", func(t *testing.T) {
		node := provider_mocks.NewProvider(t)
		node.On("ChainID").Return(bisectionChainID)
		node.On("LightBlock", mock.Anything, int64(10)).Return(nil, provider.ErrNoResponse)

		b := newBisector(t, node)
		res, err := b.VerifyToHeight(context.Background(), trustedAt(chain, 1), 10, chain.Time(11))
		assert.True(t, errors.Is(err, provider.ErrNoResponse), err)
		var vErr light.ErrVerificationFailed
		require.True(t, errors.As(err, &vErr))
		assert.EqualValues(t, 1, vErr.From)
		assert.EqualValues(t, 10, vErr.To)
		assert.Empty(t, res.Verified)
	})

	t.Run("provider serves a different height", func(t *testing.T) {
		node := provider_mocks.NewProvider(t)
		node.On("ChainID").Return(bisectionChainID)
		node.On("LightBlock", mock.Anything, int64(10)).Return(chain.Blocks[9], nil)

		b := newBisector(t, node)
		_, err := b.VerifyToHeight(context.Background(), trustedAt(chain, 1), 10, chain.Time(11))
		assert.Equal(t, ibc.KindMalformedInput, ibc.KindOf(err), err)
		var bad provider.ErrBadLightBlock
		assert.True(t, errors.As(err, &bad), err)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		b := newBisector(t, mockp.New(bisectionChainID, chain.Blocks))
		_, err := b.VerifyToHeight(ctx, trustedAt(chain, 1), 10, chain.Time(11))
		assert.True(t, errors.Is(err, context.Canceled), err)
	})
}

func TestNewBisectorValidation(t *testing.T) {
	p := mockp.New(bisectionChainID, nil)

	_, err := light.NewBisector("other-chain", trustingPeriod, p)
	assert.Error(t, err)
	_, err = light.NewBisector(bisectionChainID, 0, p)
	assert.Error(t, err)
	_, err = light.NewBisector(bisectionChainID, trustingPeriod, p, light.TrustLevel(light.DefaultTrustLevel), light.MaxBisectionDepth(0))
	assert.Error(t, err)
	_, err = light.NewBisector(bisectionChainID, trustingPeriod, p, light.MaxClockDrift(time.Minute))
	assert.NoError(t, err)
}
