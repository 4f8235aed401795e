package grandpa

import (
	"fmt"

	finalityGrandpa "github.com/ChainSafe/gossamer/pkg/finality-grandpa"

	"github.com/lightibc/lightibc/crypto"
	tmmath "github.com/lightibc/lightibc/libs/math"
)

// supermajority is the GRANDPA finality threshold.
var supermajority = tmmath.Fraction{Numerator: 2, Denominator: 3}

// AuthoritySet is a weighted GRANDPA voter set.
type AuthoritySet struct {
	SetID       uint64
	Authorities []Authority
}

func (s AuthoritySet) weights() (map[[32]byte]uint64, uint64, error) {
	weights := make(map[[32]byte]uint64, len(s.Authorities))
	var total uint64
	for _, a := range s.Authorities {
		if a.Weight == 0 {
			continue
		}
		var err error
		if total, err = tmmath.SafeAddUint64(total, a.Weight); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrEmptyAuthorities, err)
		}
		weights[a.Key] += a.Weight
	}
	if total == 0 {
		return nil, 0, ErrEmptyAuthorities
	}
	return weights, total, nil
}

// Verify checks that the justification finalizes target under set:
//   - the commit targets target,
//   - every precommit is signed by an authority of set for this round,
//   - every precommit target is the commit target or descends from it
//     through VotesAncestries, and every ancestry header is used,
//   - the commit target is the precommit GHOST of the commit, which requires
//     the distinct signers to carry more than two thirds of the set's weight.
func (j Justification) Verify(host crypto.HostFunctions, set AuthoritySet, target Precommit) error {
	if j.Commit.TargetHash != target.TargetHash || j.Commit.TargetNumber != target.TargetNumber {
		return fmt.Errorf("%w: commit targets #%d (%s), want #%d (%s)", ErrJustificationTarget,
			j.Commit.TargetNumber, j.Commit.TargetHash, target.TargetNumber, target.TargetHash)
	}

	weights, total, err := set.weights()
	if err != nil {
		return err
	}
	idWeights := make([]finalityGrandpa.IDWeight[string], 0, len(weights))
	for id, w := range weights {
		idWeights = append(idWeights, finalityGrandpa.IDWeight[string]{ID: string(id[:]), Weight: w})
	}
	voters := finalityGrandpa.NewVoterSet(idWeights)
	if voters == nil {
		return ErrEmptyAuthorities
	}

	ancestry := NewAncestryChain(host, j.VotesAncestries)
	base := j.Commit.TargetHash
	visited := make(map[crypto.Hash]struct{})
	// block numbers are widened for the vote graph, which orders targets by
	// their signed difference
	commit := finalityGrandpa.Commit[string, uint64, [64]byte, string]{
		TargetHash:   hashKey(j.Commit.TargetHash),
		TargetNumber: uint64(j.Commit.TargetNumber),
		Precommits:   make([]finalityGrandpa.SignedPrecommit[string, uint64, [64]byte, string], 0, len(j.Commit.Precommits)),
	}

	for i, sp := range j.Commit.Precommits {
		if _, ok := weights[sp.ID]; !ok {
			return fmt.Errorf("%w: precommit %d by %X", ErrUnknownAuthority, i, sp.ID)
		}
		msg := PrecommitSignBytes(sp.Precommit, j.Round, set.SetID)
		if !host.Ed25519Verify(sp.ID[:], msg, sp.Signature[:]) {
			return fmt.Errorf("%w: precommit %d by %X", ErrInvalidSignature, i, sp.ID)
		}

		// the vote graph trusts target numbers to match the route length
		if sp.Precommit.TargetHash == base {
			if sp.Precommit.TargetNumber != j.Commit.TargetNumber {
				return fmt.Errorf("%w: precommit %d targets the commit block as #%d", ErrInvalidVoteAncestry, i, sp.Precommit.TargetNumber)
			}
		} else {
			route, err := ancestry.Ancestry(base, sp.Precommit.TargetHash)
			if err != nil {
				return fmt.Errorf("%w: precommit %d: %v", ErrInvalidVoteAncestry, i, err)
			}
			if sp.Precommit.TargetNumber <= j.Commit.TargetNumber ||
				int(sp.Precommit.TargetNumber-j.Commit.TargetNumber) != len(route) {
				return fmt.Errorf("%w: precommit %d targets #%d, %d blocks above the commit",
					ErrInvalidVoteAncestry, i, sp.Precommit.TargetNumber, len(route))
			}
			for _, h := range route {
				visited[h] = struct{}{}
			}
		}

		commit.Precommits = append(commit.Precommits, finalityGrandpa.SignedPrecommit[string, uint64, [64]byte, string]{
			Precommit: finalityGrandpa.Precommit[string, uint64]{
				TargetHash:   hashKey(sp.Precommit.TargetHash),
				TargetNumber: uint64(sp.Precommit.TargetNumber),
			},
			Signature: sp.Signature,
			ID:        string(sp.ID[:]),
		})
	}

	if len(visited) != ancestry.Len() {
		return fmt.Errorf("%w: %d of %d ancestry headers used", ErrInvalidVoteAncestry, len(visited), ancestry.Len())
	}

	result, err := finalityGrandpa.ValidateCommit[string, uint64, [64]byte, string](commit, *voters, voteChain{ancestry})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJustification, err)
	}
	if !result.Valid() {
		if weight := signedWeight(j.Commit.Precommits, weights); !supermajority.Exceeds(weight, total) {
			return ErrInsufficientWeight{Got: weight, Total: total}
		}
		return fmt.Errorf("%w: commit target #%d is not the precommit ghost", ErrJustificationTarget, j.Commit.TargetNumber)
	}
	return nil
}

// signedWeight sums the weight of the distinct authorities that precommitted.
// An equivocating authority counts once.
func signedWeight(precommits []SignedPrecommit, weights map[[32]byte]uint64) uint64 {
	signed := make(map[[32]byte]struct{}, len(precommits))
	var weight uint64
	for _, sp := range precommits {
		if _, dup := signed[sp.ID]; !dup {
			signed[sp.ID] = struct{}{}
			weight += weights[sp.ID]
		}
	}
	return weight
}
