package delegating

import (
	"errors"
	"fmt"
	"testing"

	"github.com/findy-network/findy-keri-agent/agent/escrow"
	"github.com/findy-network/findy-keri-agent/agent/kel"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestSealer_sweep verifies that a sweep advances only the anchored entries
// and that every entry is in exactly one place afterwards: dune, dpwe or the
// completion records.
func TestSealer_sweep(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 10
	properties := gopter.NewProperties(parameters)

	properties.Property("only anchored entries advance", prop.ForAll(
		func(anchored []bool, witnessed bool) bool {
			env := newEnv(t)
			s := New(Config{
				Habery:    env.hby,
				Store:     env.store,
				Receipts:  cueAll{},
				Exchanger: env.exchanger,
				Proxy:     env.proxy,
			})

			evts := make([]*kel.Event, len(anchored))
			for i, a := range anchored {
				n := habCount.Add(1)
				wit := fmt.Sprintf("BWit%d", n)
				_, evts[i] = env.incept(wit)
				key := escrow.KeyOf(evts[i])
				if env.store.Pin(escrow.Unanchored, key, evts[i]) != nil {
					return false
				}
				if witnessed && env.store.AddWig(key, wit, "sig") != nil {
					return false
				}
				if a {
					env.anchor(evts[i])
				}
			}
			if s.ProcessEscrows() != nil {
				return false
			}

			for i, a := range anchored {
				key := escrow.KeyOf(evts[i])
				inU := env.in(escrow.Unanchored, key)
				inPW := env.in(escrow.PartiallyWitnessed, key)
				said, err := env.store.GetCompletion(evts[i].Prefix, 0)
				done := err == nil && said == evts[i].SAID
				if err != nil && !errors.Is(err, escrow.ErrNotFound) {
					return false
				}
				switch {
				case !a && !(inU && !inPW && !done):
					return false
				case a && witnessed && !(!inU && !inPW && done):
					return false
				case a && !witnessed && !(!inU && inPW && !done):
					return false
				}
			}
			return true
		},
		gen.SliceOfN(4, gen.Bool()),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
