/*
Package client hosts light clients of every supported kind behind one set of
tagged unions.

AnyClientState, AnyConsensusState and AnyHeader hold exactly one of the
Tendermint, GRANDPA or BEEFY variants. Every operation switches on the set
variant, so a new light client is added by extending the unions and each
switch in this package.

On the wire the unions are protobuf Any messages. Clients running as 08-wasm
contracts are wrapped in the wasm envelopes and resolved through a Registry
of code ids.

The Keeper persists clients in a Store and serializes the updates of each
client: an update is verified against the stored client state and written
in one batch, or not at all.
*/
package client
