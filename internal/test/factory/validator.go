package factory

import (
	"fmt"

	"github.com/lightibc/lightibc/crypto/ed25519"
	"github.com/lightibc/lightibc/types"
)

// PrivKeys lets tests simulate signing with many keys. Create a set, turn it
// into validators with ToValidators and sign headers with SignHeader.
type PrivKeys []ed25519.PrivKey

// GenPrivKeys produces n deterministic keys derived from seed.
func GenPrivKeys(seed string, n int) PrivKeys {
	res := make(PrivKeys, n)
	for i := range res {
		res[i] = ed25519.GenPrivKeyFromSecret([]byte(fmt.Sprintf("%s/%d", seed, i)))
	}
	return res
}

// Extend adds n more keys derived from seed.
func (pkz PrivKeys) Extend(seed string, n int) PrivKeys {
	return append(append(PrivKeys(nil), pkz...), GenPrivKeys(seed, n)...)
}

// ToValidators produces a valset from the set of keys.
// The first key has weight `init` and it increases by `inc` every step
// so we can have all the same weight, or a simple linear distribution.
func (pkz PrivKeys) ToValidators(init, inc int64) *types.ValidatorSet {
	res := make([]*types.Validator, len(pkz))
	for i, k := range pkz {
		res[i] = types.NewValidator(k.PubKey(), init+int64(i)*inc)
	}
	vals, err := types.NewValidatorSet(res)
	if err != nil {
		panic(err)
	}
	return vals
}
