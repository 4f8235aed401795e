package merkle

import (
	"crypto/sha256"
)

var (
	leafPrefix  = []byte{0}
	innerPrefix = []byte{1}
)

// returns empty sha256 hash
func emptyHash() []byte {
	h := sha256.Sum256([]byte{})
	return h[:]
}

// returns sha256(0x00 || leaf)
func leafHash(leaf []byte) []byte {
	h := sha256.Sum256(append(leafPrefix, leaf...))
	return h[:]
}

// returns sha256(0x01 || left || right)
func innerHash(left []byte, right []byte) []byte {
	data := make([]byte, len(innerPrefix)+len(left)+len(right))
	n := copy(data, innerPrefix)
	n += copy(data[n:], left)
	copy(data[n:], right)
	h := sha256.Sum256(data)
	return h[:]
}
