package beefy

import (
	"fmt"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/crypto/merkle"
	tmmath "github.com/lightibc/lightibc/libs/math"
)

// signatureThreshold is the share of an authority set, by count, that must
// sign a commitment.
var signatureThreshold = tmmath.Fraction{Numerator: 2, Denominator: 3}

// VerifySignedCommitment checks that more than two thirds of set signed the
// commitment. Every signature must recover to the public key at its index in
// set, proven by the matching entry of authorityProofs. Signatures by the
// same index are rejected.
func VerifySignedCommitment(
	host crypto.HostFunctions, set AuthoritySet, sc SignedCommitment, authorityProofs [][]crypto.Hash,
) error {
	if sc.Commitment.ValidatorSetID != set.ID {
		return fmt.Errorf("%w: commitment set id %d, authority set id %d",
			ErrAuthoritySetMismatch, sc.Commitment.ValidatorSetID, set.ID)
	}
	if len(authorityProofs) != len(sc.Signatures) {
		return fmt.Errorf("%w: %d authority proofs for %d signatures",
			ErrInvalidHeader, len(authorityProofs), len(sc.Signatures))
	}
	if !signatureThreshold.Exceeds(uint64(len(sc.Signatures)), uint64(set.Len)) {
		return ErrNotEnoughSignatures{Got: len(sc.Signatures), Total: set.Len}
	}

	msg := sc.Commitment.Hash(host)
	seen := make(map[uint32]struct{}, len(sc.Signatures))
	for i, sig := range sc.Signatures {
		if sig.Index >= set.Len {
			return fmt.Errorf("%w: index %d of %d", ErrAuthorityProof, sig.Index, set.Len)
		}
		if _, dup := seen[sig.Index]; dup {
			return fmt.Errorf("%w: index %d", ErrDuplicateSignature, sig.Index)
		}
		seen[sig.Index] = struct{}{}

		pubKey, err := host.Secp256k1RecoverCompressed(sig.Signature[:], msg[:])
		if err != nil {
			return fmt.Errorf("%w: index %d: %v", ErrInvalidSignature, sig.Index, err)
		}
		proof := merkle.BinaryProof{Proof: authorityProofs[i], NumberOfLeaves: set.Len, LeafIndex: sig.Index}
		if !merkle.VerifyBinaryProof(host.Keccak256, set.Root, pubKey, proof) {
			return fmt.Errorf("%w: index %d", ErrAuthorityProof, sig.Index)
		}
	}
	return nil
}

// AuthoritySetRoot returns the root committing to the given compressed
// public keys.
func AuthoritySetRoot(host crypto.HostFunctions, pubKeys [][]byte) crypto.Hash {
	return merkle.BinaryRoot(host.Keccak256, pubKeys)
}
