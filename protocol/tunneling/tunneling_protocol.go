// Package tunneling implements the handlers of the wallet tunnel requests.
// The notification route is the resource itself, not the exn route.
package tunneling

import (
	"errors"

	"github.com/findy-network/findy-keri-agent/agent/bus"
	"github.com/findy-network/findy-keri-agent/agent/exn"
	"github.com/findy-network/findy-keri-agent/agent/pltype"
)

type Handler struct {
	resource string
	notifier bus.Adder
}

func NewWallet(n bus.Adder) *Handler {
	return &Handler{resource: pltype.TunnelWalletRequest, notifier: n}
}

func NewServer(n bus.Adder) *Handler {
	return &Handler{resource: pltype.TunnelServerRequest, notifier: n}
}

func (h *Handler) Resource() string {
	return h.resource
}

func (h *Handler) Verify(*exn.Message) bool {
	return true
}

func (h *Handler) Handle(m *exn.Message) error {
	h.notifier.Add(bus.Attrs{
		"r": h.resource,
		"d": m.SAID,
	})
	return nil
}

// LoadHandlers registers the wallet and server tunnel handlers.
func LoadHandlers(x *exn.Exchanger, n bus.Adder) error {
	return errors.Join(
		x.AddHandler(NewWallet(n)),
		x.AddHandler(NewServer(n)),
	)
}
