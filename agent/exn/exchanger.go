package exn

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/findy-network/findy-keri-agent/agent/kel"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

var (
	ErrVerify    = errors.New("exn verify failed")
	ErrDuplicate = errors.New("route already registered")
)

// Handler processes the exn messages of its route. Verify does the route
// specific checks before the message is stored and Handle is called.
type Handler interface {
	Resource() string
	Verify(m *Message) bool
	Handle(m *Message) error
}

// Exchanger routes the received exn messages to the handlers.
type Exchanger struct {
	log Log

	l      sync.RWMutex
	routes map[string]Handler
}

func NewExchanger(log Log) *Exchanger {
	if log == nil {
		log = NewMemLog()
	}
	return &Exchanger{log: log, routes: make(map[string]Handler)}
}

// Log returns the message log of the exchanger.
func (x *Exchanger) Log() Log {
	return x.log
}

// AddHandler registers the handler for its resource route.
func (x *Exchanger) AddHandler(h Handler) error {
	x.l.Lock()
	defer x.l.Unlock()

	r := h.Resource()
	if _, ok := x.routes[r]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, r)
	}
	glog.V(3).Infoln("exn handler added:", r)
	x.routes[r] = h
	return nil
}

func (x *Exchanger) handler(route string) (Handler, bool) {
	x.l.RLock()
	defer x.l.RUnlock()
	h, ok := x.routes[route]
	return h, ok
}

// Routes returns the registered routes in sorted order.
func (x *Exchanger) Routes() []string {
	x.l.RLock()
	defer x.l.RUnlock()
	routes := make([]string, 0, len(x.routes))
	for r := range x.routes {
		routes = append(routes, r)
	}
	sort.Strings(routes)
	return routes
}

// Process verifies and stores the message and calls the route's handler. A
// message without a handler is only stored.
func (x *Exchanger) Process(m *Message) (err error) {
	defer err2.Handle(&err, "process %s", m.Route)

	if !m.Verify() {
		return fmt.Errorf("%w: %s", kel.ErrSAID, m.SAID)
	}
	h, found := x.handler(m.Route)
	if found && !h.Verify(m) {
		return fmt.Errorf("%w: %s", ErrVerify, m)
	}

	try.To(x.log.Put(m))
	if m.Prior != "" {
		try.To(x.log.SetResponse(m.Prior, m.SAID))
	}
	if !found {
		glog.V(3).Infoln("no handler for:", m)
		return nil
	}
	glog.V(1).Infoln("exn received:", m)
	return h.Handle(m)
}
