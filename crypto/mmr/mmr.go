// Package mmr implements a Merkle Mountain Range over 32 byte leaf hashes
// together with single leaf inclusion proofs.
//
// A range of n leaves is a list of perfect binary trees (mountains), one per
// set bit of n, ordered from the largest to the smallest. Inner nodes are
// hash(left || right). The root bags the mountain peaks from right to left:
// acc = peak[k-1], then acc = hash(acc || peak[i]) for i = k-2 down to 0.
package mmr

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/crypto/merkle"
)

var (
	// ErrEmpty is returned when proving against a range with no leaves.
	ErrEmpty = errors.New("mmr: empty range")
	// ErrLeafIndexOutOfRange is returned when the leaf is not in the range.
	ErrLeafIndexOutOfRange = errors.New("mmr: leaf index out of range")
	// ErrInvalidProof is returned when a proof has the wrong shape.
	ErrInvalidProof = errors.New("mmr: invalid proof")
	// ErrRootMismatch is returned when a well formed proof computes a
	// different root.
	ErrRootMismatch = errors.New("mmr: root mismatch")
)

// Proof is an inclusion proof of a single leaf. Items holds the siblings on
// the path to the leaf's peak (bottom up), then every peak left of it, then
// the bagged peaks right of it when there are any.
type Proof struct {
	LeafIndex uint64
	LeafCount uint64
	Items     []crypto.Hash
}

type mountain struct {
	start, size uint64
}

// mountains lists the perfect trees that make up a range of n leaves.
func mountains(n uint64) []mountain {
	var (
		out   []mountain
		start uint64
	)
	for n > 0 {
		size := uint64(1) << (63 - bits.LeadingZeros64(n))
		out = append(out, mountain{start: start, size: size})
		start += size
		n -= size
	}
	return out
}

// MMR is an append only range of leaf hashes. It is not safe for concurrent
// use.
type MMR struct {
	hash   merkle.HashFn
	leaves []crypto.Hash
}

// New returns an empty range that merges nodes with hash.
func New(hash merkle.HashFn) *MMR {
	return &MMR{hash: hash}
}

// Push appends a leaf hash and returns its index.
func (m *MMR) Push(leaf crypto.Hash) uint64 {
	m.leaves = append(m.leaves, leaf)
	return uint64(len(m.leaves) - 1)
}

// LeafCount returns the number of leaves pushed so far.
func (m *MMR) LeafCount() uint64 { return uint64(len(m.leaves)) }

// Root returns the bagged root of the range. The empty range has a zero root.
func (m *MMR) Root() crypto.Hash {
	ms := mountains(m.LeafCount())
	if len(ms) == 0 {
		return crypto.Hash{}
	}
	peaks := make([]crypto.Hash, len(ms))
	for i, mt := range ms {
		peaks[i] = m.peak(mt)
	}
	return bag(m.hash, peaks)
}

// Prove builds the inclusion proof of the leaf at index against the current
// root.
func (m *MMR) Prove(index uint64) (Proof, error) {
	n := m.LeafCount()
	if n == 0 {
		return Proof{}, ErrEmpty
	}
	if index >= n {
		return Proof{}, fmt.Errorf("%w: %d >= %d", ErrLeafIndexOutOfRange, index, n)
	}

	ms := mountains(n)
	own := findMountain(ms, index)
	proof := Proof{LeafIndex: index, LeafCount: n}

	level := append([]crypto.Hash(nil), m.leaves[ms[own].start:ms[own].start+ms[own].size]...)
	pos := index - ms[own].start
	for len(level) > 1 {
		proof.Items = append(proof.Items, level[pos^1])
		next := make([]crypto.Hash, len(level)/2)
		for i := range next {
			next[i] = m.hash(level[2*i][:], level[2*i+1][:])
		}
		level = next
		pos /= 2
	}

	for _, mt := range ms[:own] {
		proof.Items = append(proof.Items, m.peak(mt))
	}
	if own+1 < len(ms) {
		right := make([]crypto.Hash, 0, len(ms)-own-1)
		for _, mt := range ms[own+1:] {
			right = append(right, m.peak(mt))
		}
		proof.Items = append(proof.Items, bag(m.hash, right))
	}
	return proof, nil
}

func (m *MMR) peak(mt mountain) crypto.Hash {
	level := append([]crypto.Hash(nil), m.leaves[mt.start:mt.start+mt.size]...)
	for len(level) > 1 {
		next := make([]crypto.Hash, len(level)/2)
		for i := range next {
			next[i] = m.hash(level[2*i][:], level[2*i+1][:])
		}
		level = next
	}
	return level[0]
}

// VerifyProof checks that leaf is included at proof.LeafIndex in the range of
// proof.LeafCount leaves whose root is root.
func VerifyProof(hash merkle.HashFn, root, leaf crypto.Hash, proof Proof) error {
	if proof.LeafCount == 0 {
		return ErrEmpty
	}
	if proof.LeafIndex >= proof.LeafCount {
		return fmt.Errorf("%w: %d >= %d", ErrLeafIndexOutOfRange, proof.LeafIndex, proof.LeafCount)
	}

	ms := mountains(proof.LeafCount)
	own := findMountain(ms, proof.LeafIndex)
	height := bits.TrailingZeros64(ms[own].size)
	hasRight := own+1 < len(ms)

	want := height + own
	if hasRight {
		want++
	}
	if len(proof.Items) != want {
		return fmt.Errorf("%w: expected %d items, got %d", ErrInvalidProof, want, len(proof.Items))
	}

	acc := leaf
	pos := proof.LeafIndex - ms[own].start
	for _, sibling := range proof.Items[:height] {
		if pos%2 == 1 {
			acc = hash(sibling[:], acc[:])
		} else {
			acc = hash(acc[:], sibling[:])
		}
		pos /= 2
	}

	peaks := make([]crypto.Hash, 0, own+2)
	peaks = append(peaks, proof.Items[height:height+own]...)
	peaks = append(peaks, acc)
	if hasRight {
		peaks = append(peaks, proof.Items[len(proof.Items)-1])
	}

	if bag(hash, peaks) != root {
		return ErrRootMismatch
	}
	return nil
}

func findMountain(ms []mountain, index uint64) int {
	for i, mt := range ms {
		if index < mt.start+mt.size {
			return i
		}
	}
	return len(ms) - 1
}

func bag(hash merkle.HashFn, peaks []crypto.Hash) crypto.Hash {
	acc := peaks[len(peaks)-1]
	for i := len(peaks) - 2; i >= 0; i-- {
		acc = hash(acc[:], peaks[i][:])
	}
	return acc
}
