// Package remotesigning implements the handlers of the remote co-signing of
// interaction events.
package remotesigning

import (
	"errors"

	"github.com/findy-network/findy-keri-agent/agent/bus"
	"github.com/findy-network/findy-keri-agent/agent/exn"
	"github.com/findy-network/findy-keri-agent/agent/pltype"
	"github.com/findy-network/findy-keri-agent/protocol"
	"github.com/golang/glog"
)

// Handler serves one of the remote signing routes given as its resource.
type Handler struct {
	resource string
	log      exn.Log
	notifier bus.Adder
}

func New(resource string, log exn.Log, n bus.Adder) *Handler {
	return &Handler{resource: resource, log: log, notifier: n}
}

func (h *Handler) Resource() string {
	return h.resource
}

// Verify accepts a request only when it starts the exchange and a reference
// only when it responds to a stored, still unanswered message.
func (h *Handler) Verify(m *exn.Message) bool {
	switch {
	case protocol.Match(m.Route, "", "remotesign", "ixn", "req"):
		return m.Prior == ""
	case protocol.Match(m.Route, "", "remotesign", "ixn", "ref"):
		return protocol.Referenced(h.log, m)
	}
	glog.V(3).Infoln("remote signing, unknown route:", m.Route)
	return false
}

func (h *Handler) Handle(m *exn.Message) error {
	protocol.Notify(h.notifier, m)
	return nil
}

// LoadHandlers registers the remote signing handlers.
func LoadHandlers(x *exn.Exchanger, n bus.Adder) error {
	return errors.Join(
		x.AddHandler(New(pltype.RemoteSignRequest, x.Log(), n)),
		x.AddHandler(New(pltype.RemoteSignReference, x.Log(), n)),
	)
}
