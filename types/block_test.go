package types

import (
	"testing"
	"time"

	"github.com/gogo/protobuf/proto"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/crypto/ed25519"
	tmproto "github.com/lightibc/lightibc/proto/tendermint"
)

func makeHeader(vals *ValidatorSet, height int64, ts time.Time) *Header {
	return &Header{
		Version:            Consensus{Block: BlockProtocol},
		ChainID:            testChainID,
		Height:             height,
		Time:               ts,
		LastBlockID:        makeBlockID("last"),
		ValidatorsHash:     vals.Hash(),
		NextValidatorsHash: vals.Hash(),
		ConsensusHash:      crypto.Checksum([]byte("params")),
		AppHash:            []byte("app"),
		ProposerAddress:    vals.Validators[0].Address,
	}
}

func makeSignedHeader(t *testing.T, vals *ValidatorSet, privs []ed25519.PrivKey, height int64) *SignedHeader {
	t.Helper()
	header := makeHeader(vals, height, testTime)
	blockID := BlockID{Hash: header.Hash(), PartSetHeader: makeBlockID("parts").PartSetHeader}
	return &SignedHeader{
		Header: header,
		Commit: makeCommit(t, blockID, height, vals, privs, testTime, allSign),
	}
}

func TestHeaderHash(t *testing.T) {
	vals, _ := deterministicValidatorSet(t, 10, 20)
	h := makeHeader(vals, 3, testTime)

	hash := h.Hash()
	require.Len(t, hash, crypto.HashSize)
	assert.Equal(t, hash, h.Hash(), "hash must be deterministic")

	for name, mutate := range map[string]func(h *Header){
		"chain id": func(h *Header) { h.ChainID = "other" },
		"height":   func(h *Header) { h.Height++ },
		"time":     func(h *Header) { h.Time = h.Time.Add(time.Nanosecond) },
		"app hash": func(h *Header) { h.AppHash = []byte("other") },
		"last id":  func(h *Header) { h.LastBlockID = makeBlockID("other") },
	} {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			h2 := *h
			mutate(&h2)
			assert.NotEqual(t, hash, h2.Hash())
		})
	}

	h.ValidatorsHash = nil
	assert.Nil(t, h.Hash())
}

func TestCommitNonAbsentVote(t *testing.T) {
	vals, privs := deterministicValidatorSet(t, 10, 10, 10)
	blockID := makeBlockID("block")
	commit := makeCommit(t, blockID, 4, vals, privs, testTime, signers(0, 2))

	assert.Nil(t, commit.NonAbsentVote(1))
	assert.Nil(t, commit.NonAbsentVote(-1))
	assert.Nil(t, commit.NonAbsentVote(3))

	vote := commit.NonAbsentVote(2)
	require.NotNil(t, vote)
	assert.Equal(t, tmproto.PrecommitType, vote.Type)
	assert.Equal(t, blockID, vote.BlockID)
	assert.EqualValues(t, 4, vote.Height)
	require.NoError(t, vote.Verify(testChainID, vals.Validators[2].PubKey))
	assert.ErrorIs(t, vote.Verify("other-chain", vals.Validators[2].PubKey), ErrVoteInvalidSignature)
	assert.ErrorIs(t, vote.Verify(testChainID, vals.Validators[0].PubKey), ErrVoteInvalidValidatorAddress)
}

func TestCommitSigValidateBasic(t *testing.T) {
	addr := make([]byte, crypto.AddressSize)
	testCases := []struct {
		name   string
		sig    CommitSig
		expErr bool
	}{
		{"absent", NewCommitSigAbsent(), false},
		{"for block", NewCommitSigForBlock([]byte{1}, addr, testTime), false},
		{"absent with signature", CommitSig{BlockIDFlag: BlockIDFlagAbsent, Signature: []byte{1}}, true},
		{"missing signature", NewCommitSigForBlock(nil, addr, testTime), true},
		{"short address", NewCommitSigForBlock([]byte{1}, addr[1:], testTime), true},
		{"oversized signature", NewCommitSigForBlock(make([]byte, MaxSignatureSize+1), addr, testTime), true},
		{"unknown flag", CommitSig{BlockIDFlag: 9}, true},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := tc.sig.ValidateBasic()
			if tc.expErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSignedHeaderValidateBasic(t *testing.T) {
	vals, privs := deterministicValidatorSet(t, 10, 10, 10)
	sh := makeSignedHeader(t, vals, privs, 7)
	require.NoError(t, sh.ValidateBasic(testChainID))
	require.Error(t, sh.ValidateBasic("other-chain"))

	lb := LightBlock{SignedHeader: sh, ValidatorSet: vals}
	require.NoError(t, lb.ValidateBasic(testChainID))

	other, _ := deterministicValidatorSet(t, 1, 2)
	lb.ValidatorSet = other
	require.Error(t, lb.ValidateBasic(testChainID))

	sh.Commit.Height = 8
	require.Error(t, sh.ValidateBasic(testChainID))
}

func TestSignedHeaderProtoRoundTrip(t *testing.T) {
	vals, privs := deterministicValidatorSet(t, 10, 20, 30)
	sh := makeSignedHeader(t, vals, privs, 7)

	bz, err := proto.Marshal(sh.ToProto())
	require.NoError(t, err)

	var pb tmproto.SignedHeader
	require.NoError(t, proto.Unmarshal(bz, &pb))
	got, err := SignedHeaderFromProto(&pb)
	require.NoError(t, err)

	assert.Equal(t, sh.Hash(), got.Hash())
	if diff := cmp.Diff(sh.Commit, got.Commit); diff != "" {
		t.Errorf("commit mismatch (-want +got):\n%s", diff)
	}

	pvs, err := vals.ToProto()
	require.NoError(t, err)
	bz, err = proto.Marshal(pvs)
	require.NoError(t, err)
	var pbVals tmproto.ValidatorSet
	require.NoError(t, proto.Unmarshal(bz, &pbVals))
	gotVals, err := ValidatorSetFromProto(&pbVals)
	require.NoError(t, err)
	assert.Equal(t, vals.Hash(), gotVals.Hash())
	assert.Equal(t, vals.TotalVotingPower(), gotVals.TotalVotingPower())

	// commit signatures of the decoded header still verify
	require.NoError(t, VerifyCommitLight(testChainID, gotVals, got.Commit.BlockID, 7, got.Commit))
}

func TestNewValidatorSet(t *testing.T) {
	vals, _ := deterministicValidatorSet(t, 5, 50, 20)
	powers := []int64{}
	for _, v := range vals.Validators {
		powers = append(powers, v.VotingPower)
	}
	assert.Equal(t, []int64{50, 20, 5}, powers)

	idx, val := vals.GetByAddress(vals.Validators[1].Address)
	assert.EqualValues(t, 1, idx)
	assert.EqualValues(t, 20, val.VotingPower)
	idx, val = vals.GetByAddress([]byte("nobody"))
	assert.EqualValues(t, -1, idx)
	assert.Nil(t, val)

	_, err := NewValidatorSet(nil)
	require.Error(t, err)
	_, err = NewValidatorSet([]*Validator{vals.Validators[0], vals.Validators[0]})
	require.Error(t, err)
	_, err = NewValidatorSet([]*Validator{{PubKey: vals.Validators[0].PubKey, Address: vals.Validators[0].Address, VotingPower: MaxTotalVotingPower + 1}})
	require.Error(t, err)
}
