package secp256k1

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec"
)

const (
	// PubKeySize is the size of a compressed public key.
	PubKeySize = 33
	// PrivKeySize is the size of a private key scalar.
	PrivKeySize = 32
	// SignatureSize is the size of a recoverable r||s||v signature.
	SignatureSize = 65
	// MsgHashSize is the size of the digest a signature is produced over.
	MsgHashSize = 32

	// compactHeader is the base of the recovery byte used by btcec compact
	// signatures (27 + recovery id, +4 when the key is compressed).
	compactHeader  = 27
	compressedFlag = 4
)

var (
	ErrInvalidSignatureLength = errors.New("secp256k1: invalid signature length")
	ErrInvalidMessageHash     = errors.New("secp256k1: message hash must be 32 bytes")
	ErrInvalidRecoveryID      = errors.New("secp256k1: invalid recovery id")
)

// PrivKey is a secp256k1 private key scalar.
type PrivKey []byte

// GenPrivKey generates a new random private key.
func GenPrivKey() (PrivKey, error) {
	priv, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, err
	}
	return PrivKey(priv.Serialize()), nil
}

// PubKeyCompressed returns the 33 byte compressed public key.
func (pk PrivKey) PubKeyCompressed() []byte {
	_, pub := btcec.PrivKeyFromBytes(btcec.S256(), pk)
	return pub.SerializeCompressed()
}

// SignRecoverable signs a 32 byte digest and returns a 65 byte r||s||v
// signature where v is the recovery id (0 or 1).
func (pk PrivKey) SignRecoverable(msgHash []byte) ([]byte, error) {
	if len(msgHash) != MsgHashSize {
		return nil, ErrInvalidMessageHash
	}
	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), pk)
	compact, err := btcec.SignCompact(btcec.S256(), priv, msgHash, true)
	if err != nil {
		return nil, err
	}

	// compact is v||r||s with v = 27 + recid + 4
	sig := make([]byte, SignatureSize)
	copy(sig, compact[1:])
	sig[64] = compact[0] - compactHeader - compressedFlag
	return sig, nil
}

// RecoverCompressed recovers the compressed public key from a r||s||v
// signature. Both raw (0/1) and Ethereum style (27/28) recovery ids are
// accepted.
func RecoverCompressed(sig, msgHash []byte) ([]byte, error) {
	if len(sig) != SignatureSize {
		return nil, ErrInvalidSignatureLength
	}
	if len(msgHash) != MsgHashSize {
		return nil, ErrInvalidMessageHash
	}

	v := sig[64]
	if v >= compactHeader {
		v -= compactHeader
	}
	if v > 3 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRecoveryID, sig[64])
	}

	compact := make([]byte, SignatureSize)
	compact[0] = compactHeader + compressedFlag + v
	copy(compact[1:], sig[:64])

	pub, _, err := btcec.RecoverCompact(btcec.S256(), compact, msgHash)
	if err != nil {
		return nil, err
	}
	return pub.SerializeCompressed(), nil
}
