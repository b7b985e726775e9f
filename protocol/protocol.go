package protocol

import (
	"strings"

	"github.com/findy-network/findy-keri-agent/agent/bus"
	"github.com/findy-network/findy-keri-agent/agent/exn"
	"github.com/findy-network/findy-keri-agent/agent/pltype"
)

// Notify adds a note about the received message with the notification route
// of the message.
func Notify(n bus.Adder, m *exn.Message) string {
	return n.Add(bus.Attrs{
		"r": pltype.NotifyRoute(m.Route),
		"d": m.SAID,
	})
}

// Segments returns the route split by the slashes. The leading slash gives
// the first empty segment like in "/a/b" -> ["", "a", "b"].
func Segments(route string) []string {
	return strings.Split(route, "/")
}

// Match tells if the route has the segments.
func Match(route string, segs ...string) bool {
	rs := Segments(route)
	if len(rs) != len(segs) {
		return false
	}
	for i := range rs {
		if rs[i] != segs[i] {
			return false
		}
	}
	return true
}

// Referenced tells if the message references a stored prior message which
// has no response yet.
func Referenced(log exn.Log, m *exn.Message) bool {
	if m.Prior == "" {
		return false
	}
	return exn.Unanswered(log, m.Prior)
}
