// Package merkle computes the two Merkle tree shapes the light clients need:
// the RFC 6962 SHA-256 tree Tendermint uses for header and validator set
// hashes, and the Substrate binary tree BEEFY uses for authority sets and
// parachain heads.
package merkle

import (
	"math/bits"
)

// HashFromByteSlices computes the RFC-6962 root of items, in order.
func HashFromByteSlices(items [][]byte) []byte {
	switch n := len(items); n {
	case 0:
		return emptyHash()
	case 1:
		return leafHash(items[0])
	default:
		k := getSplitPoint(n)
		return innerHash(HashFromByteSlices(items[:k]), HashFromByteSlices(items[k:]))
	}
}

// getSplitPoint returns the largest power of 2 strictly less than n.
func getSplitPoint(n int) int {
	if n < 2 {
		panic("cannot split a tree with fewer than two leaves")
	}
	return 1 << (bits.Len(uint(n-1)) - 1)
}
