package tunneling

import (
	"testing"

	"github.com/findy-network/findy-keri-agent/agent/bus"
	"github.com/findy-network/findy-keri-agent/agent/exn"
	"github.com/findy-network/findy-keri-agent/agent/pltype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTunneling(t *testing.T) {
	x := exn.NewExchanger(nil)
	n := bus.New()
	require.NoError(t, LoadHandlers(x, n))

	for _, route := range []string{pltype.TunnelWalletRequest, pltype.TunnelServerRequest} {
		m, err := exn.Exchange(route, nil, "EA")
		require.NoError(t, err)
		require.NoError(t, x.Process(m))
	}
	notes := n.List()
	require.Len(t, notes, 2)
	assert.Equal(t, "/tunnel/wallet/request", notes[0].Attrs.Route())
	assert.Equal(t, "/tunnel/server/request", notes[1].Attrs.Route())
}
