package types

import (
	"time"

	gogotypes "github.com/gogo/protobuf/types"

	tmproto "github.com/lightibc/lightibc/proto/tendermint"
)

// Canonical* wraps the structs in types for amino encoding them for use in SignBytes / the Signable interface.

func CanonicalizeBlockID(bid BlockID) *tmproto.CanonicalBlockID {
	if bid.IsZero() {
		return nil
	}
	return &tmproto.CanonicalBlockID{
		Hash: bid.Hash,
		PartSetHeader: &tmproto.CanonicalPartSetHeader{
			Total: bid.PartSetHeader.Total,
			Hash:  bid.PartSetHeader.Hash,
		},
	}
}

// CanonicalizeVote transforms the given Vote to a CanonicalVote, which does
// not contain ValidatorIndex and ValidatorAddress fields.
func CanonicalizeVote(chainID string, vote *Vote) *tmproto.CanonicalVote {
	return &tmproto.CanonicalVote{
		Type:      vote.Type,
		Height:    vote.Height,       // encoded as sfixed64
		Round:     int64(vote.Round), // encoded as sfixed64
		BlockID:   CanonicalizeBlockID(vote.BlockID),
		Timestamp: canonicalTime(vote.Timestamp),
		ChainID:   chainID,
	}
}

func canonicalTime(t time.Time) *gogotypes.Timestamp {
	ts, err := gogotypes.TimestampProto(t.UTC())
	if err != nil {
		// out of the representable range, sign over the zero value
		return &gogotypes.Timestamp{}
	}
	return ts
}
