package client_test

import (
	"testing"

	"github.com/gogo/protobuf/proto"
	gogotypes "github.com/gogo/protobuf/types"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/ibc/client"
	"github.com/lightibc/lightibc/ibc/lightclients/beefy"
	"github.com/lightibc/lightibc/ibc/lightclients/grandpa"
	"github.com/lightibc/lightibc/ibc/lightclients/tendermint"
	"github.com/lightibc/lightibc/internal/test/factory"
	ibcproto "github.com/lightibc/lightibc/proto/ibc"
)

var grandpaCode = []byte("grandpa-wasm-code")

func TestCodecClientState(t *testing.T) {
	relay := factory.NewRelayChain(t, grandpaParaID, 4, 2)
	bc := factory.NewBeefyChain(t, beefyParaID, 4, 100, 2)
	tm := tendermintChain(t)

	registry := client.NewRegistry()
	require.NoError(t, registry.Register(grandpaCode, grandpa.ClientType))
	codec := client.NewCodec(registry)

	gcs, _ := grandpaClient(relay)
	bcs, _ := beefyClient(bc)
	tcs, _ := tendermintClient(tm, 1)
	wasm := gcs
	wasm.CodeID = grandpaCode

	testCases := []struct {
		name    string
		cs      client.AnyClientState
		typeURL string
	}{
		{"tendermint", tcs, tendermint.TypeURLClientState},
		{"grandpa", gcs, grandpa.TypeURLClientState},
		{"beefy", bcs, beefy.TypeURLClientState},
		{"wasm grandpa", wasm, client.TypeURLWasmClientState},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			msg, err := codec.EncodeClientState(tc.cs)
			require.NoError(t, err)
			assert.Equal(t, tc.typeURL, msg.TypeUrl)

			// through the wire
			bz, err := proto.Marshal(msg)
			require.NoError(t, err)
			var decodedMsg gogotypes.Any
			require.NoError(t, proto.Unmarshal(bz, &decodedMsg))

			got, err := codec.DecodeClientState(&decodedMsg)
			require.NoError(t, err)
			assert.Equal(t, tc.cs.Kind(), got.Kind())
			if diff := cmp.Diff(tc.cs, got, cmpopts.EquateEmpty(), cmp.Comparer(func(a, b ibc.Height) bool { return a.EQ(b) }),
				cmpopts.IgnoreFields(tendermint.ClientState{}, "ProofSpecs")); diff != "" {
				t.Errorf("decoded client state differs (-want +got):\n%s", diff)
			}
			if tc.cs.Tendermint != nil {
				require.Len(t, got.Tendermint.ProofSpecs, len(tc.cs.Tendermint.ProofSpecs))
				for i, spec := range tc.cs.Tendermint.ProofSpecs {
					assert.True(t, proto.Equal(spec, got.Tendermint.ProofSpecs[i]), "proof spec %d", i)
				}
			}
		})
	}
}

func TestCodecWasmClientState(t *testing.T) {
	relay := factory.NewRelayChain(t, grandpaParaID, 4, 2)
	gcs, _ := grandpaClient(relay)
	gcs.CodeID = grandpaCode

	registry := client.NewRegistry()
	require.NoError(t, registry.Register(grandpaCode, grandpa.ClientType))
	msg, err := client.NewCodec(registry).EncodeClientState(gcs)
	require.NoError(t, err)

	var envelope ibcproto.WasmClientState
	require.NoError(t, proto.Unmarshal(msg.Value, &envelope))
	assert.Equal(t, grandpaCode, envelope.CodeId)
	assert.Equal(t, uint64(grandpaParaID), envelope.LatestHeight.RevisionNumber)

	t.Run("unknown code id", func(t *testing.T) {
		_, err := client.NewCodec(client.NewRegistry()).DecodeClientState(msg)
		assert.ErrorIs(t, err, client.ErrUnknownCodeID)
		assert.Equal(t, ibc.KindMalformedInput, ibc.KindOf(err))
	})

	t.Run("code id of another client type", func(t *testing.T) {
		other := client.NewRegistry()
		require.NoError(t, other.Register(grandpaCode, beefy.ClientType))
		_, err := client.NewCodec(other).DecodeClientState(msg)
		assert.ErrorIs(t, err, client.ErrKindMismatch)
	})

	t.Run("nil registry", func(t *testing.T) {
		_, err := client.NewCodec(nil).DecodeClientState(msg)
		assert.ErrorIs(t, err, client.ErrUnknownCodeID)
	})
}

func TestCodecConsensusStateAndHeader(t *testing.T) {
	relay := factory.NewRelayChain(t, grandpaParaID, 4, 3)
	codec := client.NewCodec(nil)

	consState := client.AnyConsensusState{Grandpa: relay.ConsensusState(2)}
	header := client.AnyHeader{Grandpa: relay.UpdateHeader(t, 0, 3, 0, 1, 2)}

	for _, wasm := range []bool{false, true} {
		msg, err := codec.EncodeConsensusState(consState, wasm)
		require.NoError(t, err)
		if wasm {
			assert.Equal(t, client.TypeURLWasmConsensusState, msg.TypeUrl)
		} else {
			assert.Equal(t, grandpa.TypeURLConsensusState, msg.TypeUrl)
		}
		got, err := codec.DecodeConsensusState(msg)
		require.NoError(t, err)
		assert.True(t, consState.Equal(got), "wasm=%v", wasm)

		msg, err = codec.EncodeHeader(header, wasm)
		require.NoError(t, err)
		gotHeader, err := codec.DecodeHeader(msg)
		require.NoError(t, err)
		require.Equal(t, client.KindGrandpa, gotHeader.Kind())

		// the decoded header still verifies
		cs := relay.ClientState(0)
		_, states, err := cs.CheckHeaderAndUpdateState(relay.Host, gotHeader.Grandpa, 0)
		require.NoError(t, err, "wasm=%v", wasm)
		assert.Len(t, states, 3)
	}
}

func TestCodecErrors(t *testing.T) {
	codec := client.NewCodec(nil)

	testCases := []struct {
		name   string
		decode func() error
		want   error
	}{
		{"nil client state", func() error { _, err := codec.DecodeClientState(nil); return err }, ibc.ErrMalformedInput},
		{"unknown client state type", func() error {
			_, err := codec.DecodeClientState(&gogotypes.Any{TypeUrl: "/ibc.lightclients.solomachine.v2.ClientState"})
			return err
		}, client.ErrUnknownTypeURL},
		{"garbage grandpa client state", func() error {
			_, err := codec.DecodeClientState(&gogotypes.Any{TypeUrl: grandpa.TypeURLClientState, Value: []byte{0xff}})
			return err
		}, ibc.ErrMalformedInput},
		{"garbage wasm envelope", func() error {
			_, err := codec.DecodeConsensusState(&gogotypes.Any{TypeUrl: client.TypeURLWasmConsensusState, Value: []byte{0xff, 0xff}})
			return err
		}, ibc.ErrMalformedInput},
		{"unknown header type", func() error {
			_, err := codec.DecodeHeader(&gogotypes.Any{TypeUrl: "/ibc.lightclients.beefy.v2.Header"})
			return err
		}, client.ErrUnknownTypeURL},
		{"misbehaviour of another client", func() error {
			_, err := codec.DecodeMisbehaviour(&gogotypes.Any{TypeUrl: grandpa.TypeURLHeader})
			return err
		}, client.ErrMisbehaviourUnsupported},
		{"empty union", func() error { _, err := codec.EncodeClientState(client.AnyClientState{}); return err }, client.ErrUnknownClientKind},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.decode(), tc.want)
		})
	}
}
