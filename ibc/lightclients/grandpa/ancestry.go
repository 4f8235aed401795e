package grandpa

import (
	"fmt"

	"github.com/lightibc/lightibc/crypto"
)

// AncestryChain indexes a batch of headers by hash to answer ancestry
// queries between them.
type AncestryChain struct {
	headers map[crypto.Hash]Header
}

// NewAncestryChain indexes headers by their hash.
func NewAncestryChain(host crypto.HostFunctions, headers []Header) *AncestryChain {
	c := &AncestryChain{headers: make(map[crypto.Hash]Header, len(headers))}
	for _, h := range headers {
		c.headers[h.Hash(host)] = h
	}
	return c
}

// Header returns the header with the given hash.
func (c *AncestryChain) Header(hash crypto.Hash) (Header, bool) {
	h, ok := c.headers[hash]
	return h, ok
}

// Len is the number of distinct headers in the chain.
func (c *AncestryChain) Len() int { return len(c.headers) }

// Ancestry returns the hashes of the blocks after base up to and including
// block, newest first. It fails with ErrNoAncestry unless every block on the
// way from block back to base is known.
func (c *AncestryChain) Ancestry(base, block crypto.Hash) ([]crypto.Hash, error) {
	var route []crypto.Hash
	current := block
	for current != base {
		// a route can visit each header once
		if len(route) > len(c.headers) {
			return nil, fmt.Errorf("%w: cycle from %s", ErrNoAncestry, block)
		}
		h, ok := c.headers[current]
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a descendant of %s", ErrNoAncestry, block, base)
		}
		route = append(route, current)
		current = h.ParentHash
	}
	return route, nil
}

// IsEqualOrDescendantOf reports whether block is base or descends from it.
func (c *AncestryChain) IsEqualOrDescendantOf(base, block crypto.Hash) bool {
	_, err := c.Ancestry(base, block)
	return err == nil
}

// voteChain presents an AncestryChain to the finality-grandpa vote graph,
// which keys blocks by the string form of their hash and expects routes
// that exclude both base and block.
type voteChain struct {
	chain *AncestryChain
}

func hashKey(h crypto.Hash) string { return string(h[:]) }

func keyHash(s string) (h crypto.Hash) {
	copy(h[:], s)
	return h
}

func (c voteChain) Ancestry(base, block string) ([]string, error) {
	route, err := c.chain.Ancestry(keyHash(base), keyHash(block))
	if err != nil {
		return nil, err
	}
	if len(route) == 0 {
		return []string{}, nil
	}
	out := make([]string, 0, len(route)-1)
	for _, h := range route[1:] {
		out = append(out, hashKey(h))
	}
	return out, nil
}

func (c voteChain) IsEqualOrDescendantOf(base, block string) bool {
	return c.chain.IsEqualOrDescendantOf(keyHash(base), keyHash(block))
}
