package escrow

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestStore_migrate verifies that moving entries between the queues in the
// pin-then-remove order keeps every entry in exactly one queue.
func TestStore_migrate(t *testing.T) {
	for _, ts := range testStores {
		t.Run(ts.name, func(t *testing.T) {
			parameters := gopter.DefaultTestParameters()
			parameters.MinSuccessfulTests = 20
			properties := gopter.NewProperties(parameters)
			s := ts.store

			properties.Property("entry lives in one queue", prop.ForAll(
				func(moves []bool) bool {
					keys := make([]Key, len(moves))
					for i := range moves {
						e := newEvent()
						keys[i] = KeyOf(e)
						if s.Pin(Unanchored, keys[i], e) != nil {
							return false
						}
					}
					items, err := s.Items(Unanchored)
					if err != nil {
						return false
					}
					byKey := make(map[Key]Item, len(items))
					for _, it := range items {
						byKey[it.Key] = it
					}
					for i, move := range moves {
						if !move {
							continue
						}
						if s.Pin(PartiallyWitnessed, keys[i], byKey[keys[i]].Event) != nil {
							return false
						}
						if s.Rem(Unanchored, keys[i]) != nil {
							return false
						}
					}
					ok := true
					for i, move := range moves {
						inU, err1 := s.Has(Unanchored, keys[i])
						inPW, err2 := s.Has(PartiallyWitnessed, keys[i])
						if err1 != nil || err2 != nil {
							return false
						}
						ok = ok && inU != inPW && inPW == move
						_ = s.Rem(Unanchored, keys[i])
						_ = s.Rem(PartiallyWitnessed, keys[i])
					}
					return ok
				},
				gen.SliceOfN(5, gen.Bool()),
			))

			properties.TestingRun(t)
		})
	}
}
