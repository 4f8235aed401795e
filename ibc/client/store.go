package client

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gogo/protobuf/proto"
	gogotypes "github.com/gogo/protobuf/types"
	"github.com/google/orderedcode"
	dbm "github.com/tendermint/tm-db"

	"github.com/lightibc/lightibc/ibc"
	ibcproto "github.com/lightibc/lightibc/proto/ibc"
)

/*
Store persists client states and the consensus states verified for them.

For each client it keeps:
  - the client state,
  - the consensus states, ordered by height,
  - the host time and height each consensus state was processed at, which
    connection delays are measured from.

Writes of one client update go through Commit as a single batch, so a
reader sees either all of an update or none of it.
*/
type Store struct {
	db    dbm.DB
	codec *Codec

	// guards the read-check-write sequence of Commit
	mtx sync.Mutex
}

// NewStore returns a store over db. Values are encoded with codec.
func NewStore(db dbm.DB, codec *Codec) *Store {
	return &Store{db: db, codec: codec}
}

// Processed records the host time and height a consensus state was
// stored at.
type Processed struct {
	Time   time.Time
	Height ibc.Height
}

// ClientState returns the stored client state of id.
func (s *Store) ClientState(id string) (AnyClientState, error) {
	bz, err := s.db.Get(clientStateKey(id))
	if err != nil {
		return AnyClientState{}, err
	}
	if len(bz) == 0 {
		return AnyClientState{}, fmt.Errorf("%w: %s", ErrClientNotFound, id)
	}
	msg, err := unmarshalAny(bz)
	if err != nil {
		return AnyClientState{}, err
	}
	return s.codec.DecodeClientState(msg)
}

// ConsensusStates returns a read view of the consensus states of id.
func (s *Store) ConsensusStates(id string) ConsensusStates {
	return clientConsensusStates{store: s, id: id}
}

// ConsensusState returns the consensus state of id at height.
func (s *Store) ConsensusState(id string, height ibc.Height) (AnyConsensusState, error) {
	bz, err := s.db.Get(consensusStateKey(id, height))
	if err != nil {
		return AnyConsensusState{}, err
	}
	if len(bz) == 0 {
		return AnyConsensusState{}, fmt.Errorf("%w: %s at %s", ErrConsensusStateNotFound, id, height)
	}
	return s.decodeConsensusState(bz)
}

// PreviousConsensusState returns the consensus state of id at the highest
// height below height.
func (s *Store) PreviousConsensusState(id string, height ibc.Height) (AnyConsensusState, error) {
	iter, err := s.db.ReverseIterator(
		consensusStateKey(id, ibc.Height{}),
		consensusStateKey(id, height),
	)
	if err != nil {
		return AnyConsensusState{}, err
	}
	defer iter.Close()

	if iter.Valid() {
		return s.decodeConsensusState(iter.Value())
	}
	if err := iter.Error(); err != nil {
		return AnyConsensusState{}, err
	}
	return AnyConsensusState{}, fmt.Errorf("%w: %s below %s", ErrConsensusStateNotFound, id, height)
}

// NextConsensusState returns the consensus state of id at the lowest height
// above height.
func (s *Store) NextConsensusState(id string, height ibc.Height) (AnyConsensusState, error) {
	start, ok := height.Increment()
	if !ok {
		start = ibc.NewHeight(height.RevisionNumber+1, 0)
	}
	iter, err := s.db.Iterator(
		consensusStateKey(id, start),
		consensusStateKey(id, ibc.NewHeight(math.MaxUint64, math.MaxUint64)),
	)
	if err != nil {
		return AnyConsensusState{}, err
	}
	defer iter.Close()

	if iter.Valid() {
		return s.decodeConsensusState(iter.Value())
	}
	if err := iter.Error(); err != nil {
		return AnyConsensusState{}, err
	}
	return AnyConsensusState{}, fmt.Errorf("%w: %s above %s", ErrConsensusStateNotFound, id, height)
}

// ConsensusHeights returns the heights of the stored consensus states of
// id in ascending order.
func (s *Store) ConsensusHeights(id string) ([]ibc.Height, error) {
	iter, err := s.db.Iterator(
		consensusStateKey(id, ibc.Height{}),
		consensusStateKey(id, ibc.NewHeight(math.MaxUint64, math.MaxUint64)),
	)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var heights []ibc.Height
	for ; iter.Valid(); iter.Next() {
		h, err := decodeConsensusStateKey(iter.Key())
		if err != nil {
			return nil, err
		}
		heights = append(heights, h)
	}
	return heights, iter.Error()
}

// ProcessedTime returns the host time the consensus state of id at height
// was stored at.
func (s *Store) ProcessedTime(id string, height ibc.Height) (time.Time, error) {
	bz, err := s.db.Get(processedTimeKey(id, height))
	if err != nil {
		return time.Time{}, err
	}
	if len(bz) == 0 {
		return time.Time{}, fmt.Errorf("%w: processed time of %s at %s", ErrConsensusStateNotFound, id, height)
	}
	var pb gogotypes.Timestamp
	if err := proto.Unmarshal(bz, &pb); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ibc.ErrMalformedInput, err)
	}
	return gogotypes.TimestampFromProto(&pb)
}

// ProcessedHeight returns the host height the consensus state of id at
// height was stored at.
func (s *Store) ProcessedHeight(id string, height ibc.Height) (ibc.Height, error) {
	bz, err := s.db.Get(processedHeightKey(id, height))
	if err != nil {
		return ibc.Height{}, err
	}
	if len(bz) == 0 {
		return ibc.Height{}, fmt.Errorf("%w: processed height of %s at %s", ErrConsensusStateNotFound, id, height)
	}
	var pb ibcproto.Height
	if err := proto.Unmarshal(bz, &pb); err != nil {
		return ibc.Height{}, fmt.Errorf("%w: %v", ibc.ErrMalformedInput, err)
	}
	return ibc.NewHeight(pb.RevisionNumber, pb.RevisionHeight), nil
}

// Commit writes update for client id in one batch.
//
// expected is the latest height of the client state the update was
// verified against, or nil for a new client. The write fails with
// ErrConcurrentUpdate when the stored client state moved on since, and with
// ibc.ErrClientFrozen when it is frozen.
func (s *Store) Commit(id string, expected *ibc.Height, update Update, processed Processed) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	stored, err := s.ClientState(id)
	switch {
	case expected == nil && err == nil:
		return fmt.Errorf("%w: %s", ErrClientExists, id)
	case expected == nil && errors.Is(err, ErrClientNotFound):
	case err != nil:
		return err
	case stored.IsFrozen():
		return fmt.Errorf("%w: %s", ibc.ErrClientFrozen, id)
	case !stored.LatestHeight().EQ(*expected):
		return fmt.Errorf("%w: %s at %s, expected %s", ErrConcurrentUpdate, id, stored.LatestHeight(), *expected)
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	msg, err := s.codec.EncodeClientState(update.ClientState)
	if err != nil {
		return err
	}
	if err := batch.Set(clientStateKey(id), mustEncode(msg)); err != nil {
		return err
	}

	processedTime, err := gogotypes.TimestampProto(processed.Time)
	if err != nil {
		return fmt.Errorf("%w: %v", ibc.ErrMalformedInput, err)
	}
	processedHeight := &ibcproto.Height{
		RevisionNumber: processed.Height.RevisionNumber,
		RevisionHeight: processed.Height.RevisionHeight,
	}
	for _, cs := range update.ConsensusStates {
		msg, err := s.codec.EncodeConsensusState(cs.State, false)
		if err != nil {
			return err
		}
		if err := batch.Set(consensusStateKey(id, cs.Height), mustEncode(msg)); err != nil {
			return err
		}
		if err := batch.Set(processedTimeKey(id, cs.Height), mustEncode(processedTime)); err != nil {
			return err
		}
		if err := batch.Set(processedHeightKey(id, cs.Height), mustEncode(processedHeight)); err != nil {
			return err
		}
	}

	return batch.WriteSync()
}

// NextClientSequence returns the next client sequence number and advances
// the counter.
func (s *Store) NextClientSequence() (uint64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	bz, err := s.db.Get(clientSequenceKey())
	if err != nil {
		return 0, err
	}
	var seq uint64
	if len(bz) > 0 {
		if _, err := orderedcode.Parse(string(bz), &seq); err != nil {
			return 0, fmt.Errorf("%w: client sequence: %v", ibc.ErrMalformedInput, err)
		}
	}
	next, err := orderedcode.Append(nil, seq+1)
	if err != nil {
		panic(err)
	}
	if err := s.db.SetSync(clientSequenceKey(), next); err != nil {
		return 0, err
	}
	return seq, nil
}

func (s *Store) decodeConsensusState(bz []byte) (AnyConsensusState, error) {
	msg, err := unmarshalAny(bz)
	if err != nil {
		return AnyConsensusState{}, err
	}
	return s.codec.DecodeConsensusState(msg)
}

type clientConsensusStates struct {
	store *Store
	id    string
}

func (c clientConsensusStates) ConsensusState(height ibc.Height) (AnyConsensusState, error) {
	return c.store.ConsensusState(c.id, height)
}

func (c clientConsensusStates) PreviousConsensusState(height ibc.Height) (AnyConsensusState, error) {
	return c.store.PreviousConsensusState(c.id, height)
}

func (c clientConsensusStates) NextConsensusState(height ibc.Height) (AnyConsensusState, error) {
	return c.store.NextConsensusState(c.id, height)
}

//---------------------------------- KEY ENCODING -----------------------------------------

const (
	prefixClientState     = int64(0)
	prefixConsensusState  = int64(1)
	prefixProcessedTime   = int64(2)
	prefixProcessedHeight = int64(3)
	prefixClientSequence  = int64(4)
)

func clientStateKey(id string) []byte {
	key, err := orderedcode.Append(nil, prefixClientState, id)
	if err != nil {
		panic(err)
	}
	return key
}

func consensusStateKey(id string, height ibc.Height) []byte {
	key, err := orderedcode.Append(nil, prefixConsensusState, id, height.RevisionNumber, height.RevisionHeight)
	if err != nil {
		panic(err)
	}
	return key
}

func decodeConsensusStateKey(key []byte) (ibc.Height, error) {
	var (
		prefix int64
		id     string
		h      ibc.Height
	)
	remaining, err := orderedcode.Parse(string(key), &prefix, &id, &h.RevisionNumber, &h.RevisionHeight)
	if err != nil {
		return ibc.Height{}, err
	}
	if len(remaining) != 0 {
		return ibc.Height{}, fmt.Errorf("expected complete key but got remainder: %s", remaining)
	}
	if prefix != prefixConsensusState {
		return ibc.Height{}, fmt.Errorf("incorrect prefix. Expected %v, got %v", prefixConsensusState, prefix)
	}
	return h, nil
}

func processedTimeKey(id string, height ibc.Height) []byte {
	key, err := orderedcode.Append(nil, prefixProcessedTime, id, height.RevisionNumber, height.RevisionHeight)
	if err != nil {
		panic(err)
	}
	return key
}

func processedHeightKey(id string, height ibc.Height) []byte {
	key, err := orderedcode.Append(nil, prefixProcessedHeight, id, height.RevisionNumber, height.RevisionHeight)
	if err != nil {
		panic(err)
	}
	return key
}

func clientSequenceKey() []byte {
	key, err := orderedcode.Append(nil, prefixClientSequence)
	if err != nil {
		panic(err)
	}
	return key
}

// mustEncode proto encodes a proto.message and panics if fails
func mustEncode(pb proto.Message) []byte {
	bz, err := proto.Marshal(pb)
	if err != nil {
		panic(fmt.Errorf("unable to marshal: %w", err))
	}
	return bz
}
