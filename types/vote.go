package types

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/lightibc/lightibc/crypto"
	tmproto "github.com/lightibc/lightibc/proto/tendermint"
)

const (
	// MaxSignatureSize is the largest signature a commit may carry.
	MaxSignatureSize = 64
)

var (
	ErrVoteInvalidValidatorAddress = errors.New("invalid validator address")
	ErrVoteInvalidSignature        = errors.New("invalid signature")
)

// Vote represents a prevote, precommit, or commit vote from validators for
// consensus. Light clients only ever reconstruct precommits from a Commit.
type Vote struct {
	Type             tmproto.SignedMsgType `json:"type"`
	Height           int64                 `json:"height"`
	Round            int32                 `json:"round"`
	BlockID          BlockID               `json:"block_id"` // zero if vote is nil.
	Timestamp        time.Time             `json:"timestamp"`
	ValidatorAddress crypto.Address        `json:"validator_address"`
	ValidatorIndex   int32                 `json:"validator_index"`
	Signature        []byte                `json:"signature"`
}

// VoteSignBytes returns the proto-encoding of the canonicalized Vote, for
// signing. Panics if the marshaling fails.
//
// The encoded Protobuf message is varint length-prefixed (using MarshalDelimited)
// for backwards-compatibility with the Amino encoding, due to e.g. hardware
// devices that rely on this encoding.
func VoteSignBytes(chainID string, vote *Vote) []byte {
	pb := CanonicalizeVote(chainID, vote)
	bz, err := tmproto.MarshalDelimited(pb)
	if err != nil {
		panic(err)
	}
	return bz
}

// Verify checks the vote was signed by pubKey for chainID.
func (vote *Vote) Verify(chainID string, pubKey crypto.PubKey) error {
	if !bytes.Equal(pubKey.Address(), vote.ValidatorAddress) {
		return ErrVoteInvalidValidatorAddress
	}
	if !pubKey.VerifySignature(VoteSignBytes(chainID, vote), vote.Signature) {
		return ErrVoteInvalidSignature
	}
	return nil
}

func (vote *Vote) String() string {
	if vote == nil {
		return "nil-Vote"
	}
	return fmt.Sprintf("Vote{%v:%X %v/%02d %v %X @ %s}",
		vote.ValidatorIndex,
		vote.ValidatorAddress,
		vote.Height,
		vote.Round,
		vote.BlockID,
		vote.Signature,
		vote.Timestamp.Format(time.RFC3339Nano),
	)
}
