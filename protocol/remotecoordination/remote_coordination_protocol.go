// Package remotecoordination implements the handlers of the remote
// coordination of credential sharing and issuance.
package remotecoordination

import (
	"errors"

	"github.com/findy-network/findy-keri-agent/agent/bus"
	"github.com/findy-network/findy-keri-agent/agent/exn"
	"github.com/findy-network/findy-keri-agent/agent/pltype"
	"github.com/findy-network/findy-keri-agent/protocol"
	"github.com/golang/glog"
)

// Handler serves one of the coordination routes given as its resource.
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

func (h *Handler) Verify(m *exn.Message) bool {
	attrs := m.Attrs
	switch {
	case protocol.Match(m.Route, "", "coordination", "credentials", "info", "req"):
		return m.Prior == "" && has(attrs, "s")

	case protocol.Match(m.Route, "", "coordination", "credentials", "info", "resp"):
		return m.Prior != "" && has(attrs, "sads") && protocol.Referenced(h.log, m)

	case protocol.Match(m.Route, "", "coordination", "credentials", "issue", "prop"):
		return m.Prior == "" && has(attrs, "s", "a", "e")

	case protocol.Match(m.Route, "", "coordination", "credentials", "issue", "resp"):
		return m.Prior != "" && only(attrs, "d") && protocol.Referenced(h.log, m)
	}
	glog.V(3).Infoln("coordination, unknown route:", m.Route)
	return false
}

func (h *Handler) Handle(m *exn.Message) error {
	protocol.Notify(h.notifier, m)
	return nil
}

func has(attrs map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := attrs[k]; !ok {
			return false
		}
	}
	return true
}

// only tells that attrs have no other keys than the given one. Empty attrs
// are fine.
func only(attrs map[string]any, key string) bool {
	for k := range attrs {
		if k != key {
			return false
		}
	}
	return true
}

// LoadHandlers registers the remote coordination handlers.
func LoadHandlers(x *exn.Exchanger, n bus.Adder) error {
	return errors.Join(
		x.AddHandler(New(pltype.CoordinationInfoRequest, x.Log(), n)),
		x.AddHandler(New(pltype.CoordinationInfoResponse, x.Log(), n)),
		x.AddHandler(New(pltype.CoordinationIssuePropose, x.Log(), n)),
		x.AddHandler(New(pltype.CoordinationIssueResponse, x.Log(), n)),
	)
}
