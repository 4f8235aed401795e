package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lightibc/lightibc/light/provider"
	"github.com/lightibc/lightibc/types"
)

// Mock serves light blocks from memory and counts the requests it answers.
type Mock struct {
	chainID string

	mtx      sync.Mutex
	blocks   map[int64]*types.LightBlock
	requests []int64
}

var _ provider.Provider = (*Mock)(nil)

// New creates a mock provider with the given light blocks.
func New(chainID string, blocks map[int64]*types.LightBlock) *Mock {
	return &Mock{
		chainID: chainID,
		blocks:  blocks,
	}
}

// ChainID returns the blockchain ID.
func (p *Mock) ChainID() string {
	return p.chainID
}

func (p *Mock) String() string {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	var headers strings.Builder
	for _, h := range p.heights() {
		fmt.Fprintf(&headers, " %d:%X", h, p.blocks[h].Hash())
	}
	return fmt.Sprintf("Mock{headers:%s}", headers.String())
}

func (p *Mock) LightBlock(ctx context.Context, height int64) (*types.LightBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mtx.Lock()
	defer p.mtx.Unlock()

	p.requests = append(p.requests, height)
	if height == 0 {
		heights := p.heights()
		if len(heights) == 0 {
			return nil, provider.ErrLightBlockNotFound
		}
		return p.blocks[heights[len(heights)-1]], nil
	}
	if lb, ok := p.blocks[height]; ok {
		return lb, nil
	}
	if heights := p.heights(); len(heights) > 0 && height > heights[len(heights)-1] {
		return nil, provider.ErrHeightTooHigh
	}
	return nil, provider.ErrLightBlockNotFound
}

// Requests returns the heights asked for so far, in order.
func (p *Mock) Requests() []int64 {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return append([]int64(nil), p.requests...)
}

func (p *Mock) heights() []int64 {
	heights := make([]int64, 0, len(p.blocks))
	for h := range p.blocks {
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })
	return heights
}
