// Package humanmessaging implements the handler of the human readable exn
// messages.
package humanmessaging

import (
	"github.com/findy-network/findy-keri-agent/agent/bus"
	"github.com/findy-network/findy-keri-agent/agent/exn"
	"github.com/findy-network/findy-keri-agent/agent/pltype"
	"github.com/findy-network/findy-keri-agent/protocol"
)

type Handler struct {
	notifier bus.Adder
}

func New(n bus.Adder) *Handler {
	return &Handler{notifier: n}
}

func (h *Handler) Resource() string {
	return pltype.HumanMessage
}

// Verify accepts all messages, there is nothing route specific to check.
func (h *Handler) Verify(*exn.Message) bool {
	return true
}

func (h *Handler) Handle(m *exn.Message) error {
	protocol.Notify(h.notifier, m)
	return nil
}

// LoadHandlers registers the human messaging handler.
func LoadHandlers(x *exn.Exchanger, n bus.Adder) error {
	return x.AddHandler(New(n))
}
