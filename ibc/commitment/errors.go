package commitment

import (
	"errors"
	"fmt"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/trie"
)

var (
	ErrEmptyCommitmentPrefix = fmt.Errorf("%w: empty commitment prefix", ibc.ErrMalformedInput)
	ErrEmptyMerkleProof      = fmt.Errorf("%w: empty merkle proof", ibc.ErrMalformedInput)
	ErrEmptyMerkleRoot       = fmt.Errorf("%w: empty merkle root", ibc.ErrMalformedInput)
	ErrEmptyValue            = fmt.Errorf("%w: empty value", ibc.ErrMalformedInput)
	ErrInvalidProof          = fmt.Errorf("%w: invalid merkle proof", ibc.ErrProofVerificationFailure)
	ErrValueMismatch         = fmt.Errorf("%w: proven value does not match", ibc.ErrProofVerificationFailure)
	ErrKeyExists             = fmt.Errorf("%w: key is present", ibc.ErrProofVerificationFailure)
	ErrKeyNotFound           = fmt.Errorf("%w: key is absent", ibc.ErrProofVerificationFailure)
)

// wrapTrieErr tags trie lookup errors with their kind.
func wrapTrieErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, trie.ErrHashMismatch), errors.Is(err, trie.ErrIncompleteProof):
		return ibc.Wrap(ibc.ErrProofVerificationFailure, err)
	case errors.Is(err, trie.ErrEmptyProof):
		return ibc.Wrap(ErrEmptyMerkleProof, err)
	default:
		return ibc.Wrap(ibc.ErrMalformedInput, err)
	}
}
