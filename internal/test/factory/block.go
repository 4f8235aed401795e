package factory

import (
	"testing"
	"time"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/types"
)

// DefaultTestTime is the time of the first block generated by GenChain.
var DefaultTestTime = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

// BlockInterval separates consecutive generated headers.
const BlockInterval = time.Minute

// Hash is a stand in hash of s.
func Hash(s string) []byte {
	return crypto.Checksum([]byte(s))
}

// GenHeader returns a valid header signed over by valset and announcing
// nextValset.
func GenHeader(chainID string, height int64, bTime time.Time,
	valset, nextValset *types.ValidatorSet, appHash []byte) *types.Header {

	return &types.Header{
		Version: types.Consensus{Block: types.BlockProtocol, App: 0},
		ChainID: chainID,
		Height:  height,
		Time:    bTime,
		// LastBlockID
		// LastCommitHash
		ValidatorsHash:     valset.Hash(),
		NextValidatorsHash: nextValset.Hash(),
		AppHash:            appHash,
		ConsensusHash:      Hash("cons_hash"),
		LastResultsHash:    Hash("results_hash"),
		ProposerAddress:    valset.Validators[0].Address,
	}
}

// GenSignedHeader calls GenHeader and SignHeader and combines them into a
// SignedHeader.
func (pkz PrivKeys) GenSignedHeader(t testing.TB, chainID string, height int64, bTime time.Time,
	valset, nextValset *types.ValidatorSet, appHash []byte, first, last int) *types.SignedHeader {

	t.Helper()

	header := GenHeader(chainID, height, bTime, valset, nextValset, appHash)
	return &types.SignedHeader{
		Header: header,
		Commit: pkz.SignHeader(t, header, valset, first, last),
	}
}

// Chain is a run of consecutive light blocks and the keys that signed them.
type Chain struct {
	ChainID string
	Blocks  map[int64]*types.LightBlock
	Keys    map[int64]PrivKeys
}

// GenChain generates light blocks for heights from through to (inclusive)
// plus one more so the last requested block has a known next validator
// set. keysAt returns the signing keys of a height; every key signs.
func GenChain(t testing.TB, chainID string, from, to int64, keysAt func(height int64) PrivKeys) *Chain {
	t.Helper()

	c := &Chain{
		ChainID: chainID,
		Blocks:  make(map[int64]*types.LightBlock, to-from+2),
		Keys:    make(map[int64]PrivKeys, to-from+2),
	}

	var lastBlockID types.BlockID
	for height := from; height <= to+1; height++ {
		keys, nextKeys := keysAt(height), keysAt(height+1)
		vals, nextVals := keys.ToValidators(10, 0), nextKeys.ToValidators(10, 0)

		header := GenHeader(chainID, height, c.Time(height), vals, nextVals, Hash("app_hash"))
		header.LastBlockID = lastBlockID
		sh := &types.SignedHeader{
			Header: header,
			Commit: keys.SignHeader(t, header, vals, 0, len(keys)),
		}
		lastBlockID = sh.Commit.BlockID

		c.Blocks[height] = &types.LightBlock{SignedHeader: sh, ValidatorSet: vals}
		c.Keys[height] = keys
	}
	return c
}

// Time is the header time of height.
func (c *Chain) Time(height int64) time.Time {
	return DefaultTestTime.Add(time.Duration(height) * BlockInterval)
}

// NextValidators returns the validator set announced by height.
func (c *Chain) NextValidators(height int64) *types.ValidatorSet {
	return c.Blocks[height+1].ValidatorSet
}
