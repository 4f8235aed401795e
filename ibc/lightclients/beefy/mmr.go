package beefy

import (
	"fmt"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/crypto/mmr"
)

// LeafIndex returns the MMR leaf index of relay block blockNumber. The MMR
// pallet appends its first leaf at activationBlock, or at block 1 when it
// was active from genesis.
func LeafIndex(activationBlock, blockNumber uint32) (uint64, error) {
	first := activationBlock
	if first == 0 {
		first = 1
	}
	if blockNumber < first {
		return 0, fmt.Errorf("%w: block #%d precedes the first leaf at #%d", ErrInvalidLeafIndex, blockNumber, first)
	}
	return uint64(blockNumber - first), nil
}

// verifyLeaf checks that leaf is the MMR leaf of relay block blockNumber
// under root, with the range ending at the leaf of latestBlock.
func verifyLeaf(
	host crypto.HostFunctions, root crypto.Hash, activationBlock, latestBlock uint32, leaf MmrLeaf, proof mmr.Proof,
) error {
	blockNumber := leaf.ParentNumber + 1
	index, err := LeafIndex(activationBlock, blockNumber)
	if err != nil {
		return err
	}
	last, err := LeafIndex(activationBlock, latestBlock)
	if err != nil {
		return err
	}
	if proof.LeafIndex != index {
		return fmt.Errorf("%w: proof for leaf %d, block #%d is leaf %d", ErrInvalidLeafIndex, proof.LeafIndex, blockNumber, index)
	}
	if proof.LeafCount != last+1 {
		return fmt.Errorf("%w: proof over %d leaves, root commits to %d", ErrInvalidLeafIndex, proof.LeafCount, last+1)
	}
	if err := mmr.VerifyProof(host.Keccak256, root, leaf.Hash(host), proof); err != nil {
		return fmt.Errorf("%w: block #%d: %v", ErrMmrLeafProof, blockNumber, err)
	}
	return nil
}
