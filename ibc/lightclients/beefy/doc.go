// Package beefy implements the 11-beefy light client: a parachain client
// whose relay chain is followed through BEEFY signed commitments to the
// relay chain's Merkle Mountain Range, with parachain headers proven by MMR
// leaves.
package beefy
