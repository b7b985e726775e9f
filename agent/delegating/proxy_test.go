package delegating

import (
	"errors"
	"testing"

	"github.com/findy-network/findy-keri-agent/agent/kel"
	"github.com/lainio/err2/assert"
)

func TestResolveProxy(t *testing.T) {
	member := &kel.Hab{Name: "member", Pre: "EMember"}
	group := &kel.Hab{Name: "group", Pre: "EGroup", Member: member}
	single := &kel.Hab{Name: "single", Pre: "ESingle"}
	explicit := &kel.Hab{Name: "explicit", Pre: "EExplicit"}
	def := &kel.Hab{Name: "default", Pre: "EDefault"}

	tests := []struct {
		name string
		in   ProxyInput
		want *kel.Hab
	}{
		{"group member first", ProxyInput{Hab: group, Explicit: explicit, Default: def}, member},
		{"self after inception", ProxyInput{Hab: single, SN: 1, Explicit: explicit, Default: def}, single},
		{"explicit", ProxyInput{Hab: single, Explicit: explicit, Default: def}, explicit},
		{"default", ProxyInput{Hab: single, Default: def}, def},
		{"none", ProxyInput{Hab: single}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.PushTester(t)
			defer assert.PopTester()

			got, err := ResolveProxy(tt.in)
			if tt.want == nil {
				assert.That(errors.Is(err, ErrValidation))
				var verr *ValidationError
				assert.That(errors.As(err, &verr))
				return
			}
			assert.NoError(err)
			assert.Equal(got, tt.want)
		})
	}
}
