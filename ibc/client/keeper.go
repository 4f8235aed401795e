package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/creachadair/taskgroup"
	dbm "github.com/tendermint/tm-db"

	"github.com/lightibc/lightibc/crypto"
	"github.com/lightibc/lightibc/crypto/native"
	"github.com/lightibc/lightibc/ibc"
	"github.com/lightibc/lightibc/ibc/commitment"
	"github.com/lightibc/lightibc/ibc/lightclients/tendermint"
	"github.com/lightibc/lightibc/libs/log"
)

// WasmClientType prefixes the ids of clients running as wasm contracts.
const WasmClientType = "08-wasm"

// Keeper creates and updates light clients and verifies counterparty state
// against them. Updates of one client are serialized; updates of distinct
// clients run concurrently.
type Keeper struct {
	store   *Store
	logger  log.Logger
	metrics *Metrics

	host              crypto.HostFunctions
	now               func() time.Time
	hostHeight        func() ibc.Height
	maxUnknownHeaders int

	mtx   sync.Mutex
	locks map[string]*sync.Mutex
}

// Option sets an optional parameter on the Keeper.
type Option func(*Keeper)

// WithLogger sets the logger. The default discards log lines.
func WithLogger(l log.Logger) Option {
	return func(k *Keeper) { k.logger = l }
}

// WithMetrics sets the metrics. The default is NopMetrics.
func WithMetrics(m *Metrics) Option {
	return func(k *Keeper) { k.metrics = m }
}

// WithHost sets the host functions used for signature checks and hashing.
// The default is the native host.
func WithHost(h crypto.HostFunctions) Option {
	return func(k *Keeper) { k.host = h }
}

// WithClock sets the source of the host time. The default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(k *Keeper) { k.now = now }
}

// WithHostHeight sets the source of the host chain height, which block
// delays are measured in.
func WithHostHeight(height func() ibc.Height) Option {
	return func(k *Keeper) { k.hostHeight = height }
}

// WithMaxUnknownHeaders bounds the headers of a GRANDPA finality proof.
func WithMaxUnknownHeaders(n int) Option {
	return func(k *Keeper) { k.maxUnknownHeaders = n }
}

// NewKeeper returns a keeper storing clients in db. registry resolves the
// code ids of wasm clients.
func NewKeeper(db dbm.DB, registry *Registry, opts ...Option) *Keeper {
	k := &Keeper{
		store:      NewStore(db, NewCodec(registry)),
		logger:     log.NewNopLogger(),
		metrics:    NopMetrics(),
		host:       native.Host{},
		now:        time.Now,
		hostHeight: func() ibc.Height { return ibc.Height{} },
		locks:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Store returns the underlying store.
func (k *Keeper) Store() *Store { return k.store }

func (k *Keeper) clientLock(id string) *sync.Mutex {
	k.mtx.Lock()
	defer k.mtx.Unlock()
	l, ok := k.locks[id]
	if !ok {
		l = new(sync.Mutex)
		k.locks[id] = l
	}
	return l
}

func (k *Keeper) processed() Processed {
	return Processed{Time: k.now(), Height: k.hostHeight()}
}

// CreateClient stores a new client with its initial consensus state and
// returns its id, "{client type}-{sequence}".
func (k *Keeper) CreateClient(ctx context.Context, cs AnyClientState, consState AnyConsensusState) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := cs.Initialize(consState); err != nil {
		return "", err
	}
	if cs.IsFrozen() {
		return "", fmt.Errorf("%w: cannot create a frozen client", ibc.ErrClientFrozen)
	}
	if len(cs.CodeID) > 0 {
		clientType, ok := k.store.codec.Registry().ClientType(cs.CodeID)
		if !ok {
			return "", fmt.Errorf("%w: %X", ErrUnknownCodeID, cs.CodeID)
		}
		if clientType != cs.ClientType() {
			return "", fmt.Errorf("%w: code id %X runs %s", ErrKindMismatch, cs.CodeID, clientType)
		}
	}

	seq, err := k.store.NextClientSequence()
	if err != nil {
		return "", err
	}
	clientType := cs.ClientType()
	if len(cs.CodeID) > 0 {
		clientType = WasmClientType
	}
	id := FormatClientID(clientType, seq)

	update := Update{
		ClientState:     cs,
		ConsensusStates: []HeightConsensusState{{Height: cs.LatestHeight(), State: consState}},
	}
	if err := k.store.Commit(id, nil, update, k.processed()); err != nil {
		return "", err
	}

	k.metrics.LatestHeight.With("client_id", id).Set(float64(cs.LatestHeight().RevisionHeight))
	k.logger.Info("created client", "client_id", id, "client_type", cs.ClientType(), "height", cs.LatestHeight())
	return id, nil
}

// UpdateClient verifies header against client id and stores the result in
// one write. A frozen client rejects every header. A header producing a
// consensus state that conflicts with a stored one freezes the client; the
// returned Update then has Frozen set and carries no consensus state.
func (k *Keeper) UpdateClient(ctx context.Context, id string, header AnyHeader) (Update, error) {
	if err := ctx.Err(); err != nil {
		return Update{}, err
	}

	l := k.clientLock(id)
	l.Lock()
	defer l.Unlock()

	start := time.Now()
	update, clientType, err := k.updateClient(id, header)
	if err != nil {
		kind := ibc.KindOf(err)
		k.metrics.UpdateFailures.With("client_type", clientType, "kind", kind.String()).Add(1)
		k.logger.Error("rejected client update",
			"client_id", id, "kind", kind.String(), "retryable", ibc.Retryable(err), "err", err)
		return Update{}, err
	}
	k.metrics.UpdateDuration.With("client_type", clientType).Observe(time.Since(start).Seconds())

	if update.Frozen {
		k.metrics.FrozenClients.With("client_type", clientType).Add(1)
		k.logger.Error("froze client on misbehaviour", "client_id", id)
		return update, nil
	}

	latest := update.ClientState.LatestHeight()
	k.metrics.ClientUpdates.With("client_type", clientType).Add(1)
	k.metrics.LatestHeight.With("client_id", id).Set(float64(latest.RevisionHeight))
	k.logger.Info("updated client", "client_id", id, "height", latest,
		"consensus_states", len(update.ConsensusStates))
	return update, nil
}

func (k *Keeper) updateClient(id string, header AnyHeader) (Update, string, error) {
	cs, err := k.store.ClientState(id)
	if err != nil {
		return Update{}, header.ClientType(), err
	}
	clientType := cs.ClientType()
	if cs.IsFrozen() {
		return Update{}, clientType, fmt.Errorf("%w: %s", ibc.ErrClientFrozen, id)
	}

	env := Env{Host: k.host, Now: k.now(), MaxUnknownHeaders: k.maxUnknownHeaders}
	states := k.store.ConsensusStates(id)
	update, err := cs.VerifyHeader(env, states, header)
	if err != nil {
		return Update{}, clientType, err
	}
	k.logger.Debug("verified header", "client_id", id, "height", update.ClientState.LatestHeight())

	if !update.Frozen {
		update, err = k.checkConflicts(id, cs, states, update)
		if err != nil {
			return Update{}, clientType, err
		}
	}

	expected := cs.LatestHeight()
	if err := k.store.Commit(id, &expected, update, k.processed()); err != nil {
		return Update{}, clientType, err
	}
	return update, clientType, nil
}

// checkConflicts drops consensus states already stored and freezes the
// client if a stored one differs.
func (k *Keeper) checkConflicts(id string, cs AnyClientState, states ConsensusStates, update Update) (Update, error) {
	fresh := update.ConsensusStates[:0:0]
	for _, hcs := range update.ConsensusStates {
		stored, err := states.ConsensusState(hcs.Height)
		switch {
		case errors.Is(err, ErrConsensusStateNotFound):
			fresh = append(fresh, hcs)
		case err != nil:
			return Update{}, err
		case stored.Equal(hcs.State):
			k.logger.Debug("consensus state already stored", "client_id", id, "height", hcs.Height)
		default:
			k.logger.Debug("conflicting consensus state", "client_id", id, "height", hcs.Height)
			return Update{ClientState: cs.Freeze(), Frozen: true}, nil
		}
	}
	update.ConsensusStates = fresh
	return update, nil
}

// HeaderUpdate is a header for a client.
type HeaderUpdate struct {
	ClientID string
	Header   AnyHeader
}

// UpdateClients applies updates concurrently across clients and in order
// within a client. The returned errors align with updates.
func (k *Keeper) UpdateClients(ctx context.Context, updates []HeaderUpdate) []error {
	errs := make([]error, len(updates))

	byClient := make(map[string][]int)
	for i, u := range updates {
		byClient[u.ClientID] = append(byClient[u.ClientID], i)
	}

	g := taskgroup.New(nil)
	for _, idxs := range byClient {
		idxs := idxs
		g.Go(func() error {
			for _, i := range idxs {
				_, errs[i] = k.UpdateClient(ctx, updates[i].ClientID, updates[i].Header)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// SubmitMisbehaviour freezes a Tendermint client on proof of two
// conflicting headers.
func (k *Keeper) SubmitMisbehaviour(ctx context.Context, id string, misbehaviour *tendermint.Misbehaviour) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l := k.clientLock(id)
	l.Lock()
	defer l.Unlock()

	cs, err := k.store.ClientState(id)
	if err != nil {
		return err
	}
	if cs.Kind() != KindTendermint {
		return fmt.Errorf("%w: %s", ErrMisbehaviourUnsupported, cs.ClientType())
	}
	frozen, err := cs.Tendermint.CheckMisbehaviourAndUpdateState(
		tendermintStore{k.store.ConsensusStates(id)}, k.now(), misbehaviour)
	if err != nil {
		return err
	}

	expected := cs.LatestHeight()
	update := Update{ClientState: AnyClientState{Tendermint: frozen, CodeID: cs.CodeID}, Frozen: true}
	if err := k.store.Commit(id, &expected, update, k.processed()); err != nil {
		return err
	}
	k.metrics.FrozenClients.With("client_type", cs.ClientType()).Add(1)
	k.logger.Error("froze client on submitted misbehaviour", "client_id", id)
	return nil
}

// ClientState returns the stored client state of id.
func (k *Keeper) ClientState(id string) (AnyClientState, error) {
	return k.store.ClientState(id)
}

// ConsensusState returns the stored consensus state of id at height.
func (k *Keeper) ConsensusState(id string, height ibc.Height) (AnyConsensusState, error) {
	return k.store.ConsensusState(id, height)
}

// ClientStatus returns the status of client id at the host time.
func (k *Keeper) ClientStatus(id string) (ibc.Status, error) {
	cs, err := k.store.ClientState(id)
	if err != nil {
		return ibc.Unknown, err
	}
	return cs.Status(k.store.ConsensusStates(id), k.now()), nil
}

// Delay is the connection delay a proof must wait out after the consensus
// state it is checked against was stored.
type Delay struct {
	Time   time.Duration
	Blocks uint64
}

// VerifyMembership verifies a proof of path = value in the state of the
// chain tracked by client id, at height. The consensus state at height must
// have been stored for at least delay.
func (k *Keeper) VerifyMembership(
	ctx context.Context,
	id string,
	height ibc.Height,
	delay Delay,
	prefix commitment.MerklePrefix,
	proof []byte,
	path commitment.MerklePath,
	value []byte,
) error {
	cs, err := k.verifiable(ctx, id, height, delay)
	if err != nil {
		return err
	}
	return cs.VerifyMembership(k.host, k.store.ConsensusStates(id), height, prefix, proof, path, value)
}

// VerifyNonMembership verifies a proof that path is absent from the state
// of the chain tracked by client id, at height.
func (k *Keeper) VerifyNonMembership(
	ctx context.Context,
	id string,
	height ibc.Height,
	delay Delay,
	prefix commitment.MerklePrefix,
	proof []byte,
	path commitment.MerklePath,
) error {
	cs, err := k.verifiable(ctx, id, height, delay)
	if err != nil {
		return err
	}
	return cs.VerifyNonMembership(k.host, k.store.ConsensusStates(id), height, prefix, proof, path)
}

func (k *Keeper) verifiable(ctx context.Context, id string, height ibc.Height, delay Delay) (AnyClientState, error) {
	if err := ctx.Err(); err != nil {
		return AnyClientState{}, err
	}
	cs, err := k.store.ClientState(id)
	if err != nil {
		return AnyClientState{}, err
	}
	now := k.now()
	switch status := cs.Status(k.store.ConsensusStates(id), now); status {
	case ibc.Active:
	case ibc.Frozen:
		return AnyClientState{}, fmt.Errorf("%w: %s", ibc.ErrClientFrozen, id)
	default:
		return AnyClientState{}, fmt.Errorf("%w: client %s is %s", ibc.ErrClockFault, id, status)
	}
	if cs.LatestHeight().LT(height) {
		return AnyClientState{}, fmt.Errorf("%w: proof height %s above latest height %s",
			ibc.ErrTargetNotFound, height, cs.LatestHeight())
	}

	processedTime, err := k.store.ProcessedTime(id, height)
	if err != nil {
		return AnyClientState{}, err
	}
	processedHeight, err := k.store.ProcessedHeight(id, height)
	if err != nil {
		return AnyClientState{}, err
	}
	if err := ibc.VerifyDelayPassed(now, k.hostHeight(), processedTime, processedHeight, delay.Time, delay.Blocks); err != nil {
		return AnyClientState{}, err
	}
	return cs, nil
}

// FormatClientID returns "{clientType}-{sequence}".
func FormatClientID(clientType string, sequence uint64) string {
	return fmt.Sprintf("%s-%d", clientType, sequence)
}

// ParseClientID splits a client id into its client type and sequence.
func ParseClientID(id string) (string, uint64, error) {
	i := strings.LastIndexByte(id, '-')
	if i <= 0 || i == len(id)-1 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidClientID, id)
	}
	seq, err := strconv.ParseUint(id[i+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q: %v", ErrInvalidClientID, id, err)
	}
	return id[:i], seq, nil
}
