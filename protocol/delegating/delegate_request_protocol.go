// Package delegating implements the /delegate/request exn message which tells
// a delegator that a delegated event is ready for its approval.
package delegating

import (
	"fmt"

	"github.com/findy-network/findy-keri-agent/agent/bus"
	"github.com/findy-network/findy-keri-agent/agent/exn"
	"github.com/findy-network/findy-keri-agent/agent/kel"
	"github.com/findy-network/findy-keri-agent/agent/pltype"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Locals tells if the prefix is our local identifier.
type Locals interface {
	Has(pre string) bool
}

type Handler struct {
	locals   Locals
	notifier bus.Adder
}

func New(locals Locals, n bus.Adder) *Handler {
	return &Handler{locals: locals, notifier: n}
}

func (h *Handler) Resource() string {
	return pltype.DelegateRequest
}

// Verify checks that the message has the delegation prefix and the embedded
// event.
func (h *Handler) Verify(m *exn.Message) bool {
	_, ok := m.Attrs["delpre"].(string)
	_, hasEvt := m.Embeds["evt"]
	return ok && hasEvt
}

// Handle notifies about the request if the delpre is our local identifier.
// Requests for others are logged and dropped.
func (h *Handler) Handle(m *exn.Message) error {
	delpre, _ := m.Attrs["delpre"].(string)
	if !h.locals.Has(delpre) {
		glog.Errorf("invalid delegate request message, no local delpre: %s", delpre)
		return nil
	}
	attrs := bus.Attrs{
		"src":    m.Sender,
		"r":      pltype.DelegateRequest,
		"delpre": delpre,
		"ked":    m.Embeds["evt"],
	}
	if aids, ok := m.Attrs["aids"]; ok {
		attrs["aids"] = aids
	}
	h.notifier.Add(attrs)
	return nil
}

// RequestExn builds the delegate request from the sender. The msg is the
// delegated event with its attachments, only the event is embedded.
func RequestExn(sender, delpre string, msg []byte, aids []string) (m *exn.Message, atc []byte, err error) {
	defer err2.Handle(&err, "delegate request exn")

	e := try.To1(kel.Parse(msg))
	atc = append([]byte(nil), msg[e.Size():]...)

	var ked map[string]any
	try.To(kel.Unmarshal(e.Raw, &ked, e.Kind))
	if ked == nil {
		return nil, nil, fmt.Errorf("empty event %s", e)
	}

	payload := map[string]any{"delpre": delpre}
	if len(aids) > 0 {
		payload["aids"] = aids
	}
	m = try.To1(exn.Exchange(pltype.DelegateRequest, payload, sender,
		exn.WithEmbeds(map[string]any{"evt": ked})))
	return m, atc, nil
}

// LoadHandlers registers the delegate request handler.
func LoadHandlers(x *exn.Exchanger, locals Locals, n bus.Adder) error {
	return x.AddHandler(New(locals, n))
}
