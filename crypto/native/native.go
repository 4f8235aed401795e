// Package native provides a crypto.HostFunctions implementation backed by Go
// libraries, for use off-chain (relayers, tests) and by hosts without
// precompiles.
package native

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/crypto/ed25519"
	"github.com/lightibc/lightibc/crypto/secp256k1"
)

var _ crypto.HostFunctions = Host{}

// Host implements crypto.HostFunctions. The zero value is ready to use.
type Host struct{}

// New returns the native host.
func New() Host { return Host{} }

func (Host) Ed25519Verify(pubKey, msg, sig []byte) bool {
	return ed25519.PubKey(pubKey).VerifySignature(msg, sig)
}

func (Host) Secp256k1RecoverCompressed(sig, msgHash []byte) ([]byte, error) {
	return secp256k1.RecoverCompressed(sig, msgHash)
}

func (Host) Keccak256(data ...[]byte) crypto.Hash {
	hasher := sha3.NewLegacyKeccak256()
	for _, b := range data {
		hasher.Write(b)
	}
	var h crypto.Hash
	hasher.Sum(h[:0])
	return h
}

func (Host) Blake2b256(data ...[]byte) crypto.Hash {
	hasher, err := blake2b.New256(nil)
	if err != nil {
		// only fails for oversized keys
		panic(err)
	}
	for _, b := range data {
		hasher.Write(b)
	}
	var h crypto.Hash
	hasher.Sum(h[:0])
	return h
}

func (Host) Sha256(data ...[]byte) crypto.Hash {
	hasher := sha256.New()
	for _, b := range data {
		hasher.Write(b)
	}
	var h crypto.Hash
	hasher.Sum(h[:0])
	return h
}

func (Host) Twox128(data []byte) [16]byte {
	var out [16]byte
	binary.LittleEndian.PutUint64(out[:8], twox(data, 0))
	binary.LittleEndian.PutUint64(out[8:], twox(data, 1))
	return out
}

func (Host) Twox64(data []byte) [8]byte {
	var out [8]byte
	binary.LittleEndian.PutUint64(out[:], twox(data, 0))
	return out
}

func twox(data []byte, seed uint64) uint64 {
	d := xxhash.NewWithSeed(seed)
	_, _ = d.Write(data)
	return d.Sum64()
}
