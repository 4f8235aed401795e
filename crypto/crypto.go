package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/lightibc/lightibc/libs/bytes"
)

const (
	// HashSize is the size in bytes of a Hash.
	HashSize = 32

	// AddressSize is the size of a pubkey address.
	AddressSize = 20
)

// An address is a []byte, but hex-encoded even in JSON.
// []byte leaves us the option to change the address length.
// Use an alias so Unmarshal methods (with ptr receivers) are available too.
type Address = bytes.HexBytes

// Hash is a 32 byte digest (H256 on Substrate chains).
type Hash [HashSize]byte

// HashFromBytes copies bz into a Hash. It returns false if bz has the wrong
// length.
func HashFromBytes(bz []byte) (Hash, bool) {
	var h Hash
	if len(bz) != HashSize {
		return h, false
	}
	copy(h[:], bz)
	return h, true
}

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) IsZero() bool { return h == Hash{} }

func (h Hash) String() string { return strings.ToUpper(hex.EncodeToString(h[:])) }

// AddressHash computes a truncated SHA-256 hash of bz for use as
// a validator address.
func AddressHash(bz []byte) Address {
	h := sha256.Sum256(bz)
	return Address(h[:AddressSize])
}

// Checksum returns the SHA256 of the bz.
func Checksum(bz []byte) []byte {
	h := sha256.Sum256(bz)
	return h[:]
}

type PubKey interface {
	Address() Address
	Bytes() []byte
	VerifySignature(msg []byte, sig []byte) bool
	Equals(PubKey) bool
	Type() string
}

type PrivKey interface {
	Bytes() []byte
	Sign(msg []byte) ([]byte, error)
	PubKey() PubKey
	Equals(PrivKey) bool
	Type() string
}

// BatchVerifier verifies a set of signatures at once. If a new key type
// implements batch verification, it must be handled in types.newBatchVerifier.
type BatchVerifier interface {
	// Add appends an entry into the BatchVerifier.
	Add(key PubKey, message, signature []byte) error
	// Verify verifies all the entries in the BatchVerifier, and returns
	// if every signature in the batch is valid, and a vector of bools
	// indicating the verification status of each signature (in the order
	// that signatures were added to the batch).
	Verify() (bool, []bool)
}
