package kel

import (
	"fmt"
	"sync"

	"github.com/lainio/err2"
)

// Signer produces the signature attachment for the serialized event. Key
// management lives outside of this agent.
type Signer interface {
	Sign(raw []byte) (atc []byte, err error)
}

// Hab is a local identifier environment, i.e. the identifier we control. A
// group (multisig) Hab has a Member which is our local member identifier of
// the group.
type Hab struct {
	Name   string
	Pre    string
	Member *Hab
	Signer Signer

	kevers *Kevers
}

// Group tells if the Hab is a group multisig identifier.
func (h *Hab) Group() bool {
	return h.Member != nil
}

// Kever returns the current key state of the Hab.
func (h *Hab) Kever() (ks KeyState, ok bool) {
	return h.kevers.Get(h.Pre)
}

// MakeOwnEvent returns our own event at sn with its signature attachments.
func (h *Hab) MakeOwnEvent(sn uint64) (msg []byte, err error) {
	defer err2.Handle(&err, "make own event %d", sn)

	ks, ok := h.Kever()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPrefix, h.Pre)
	}
	e := ks.EventAt(sn)
	if e == nil {
		return nil, fmt.Errorf("no event at sn %d for %s", sn, h.Pre)
	}
	msg = append([]byte(nil), e.Raw...)
	if h.Signer != nil {
		atc, err := h.Signer.Sign(e.Raw)
		if err != nil {
			return nil, err
		}
		msg = append(msg, atc...)
	}
	return msg, nil
}

func (h *Hab) String() string {
	return h.Name + "(" + h.Pre + ")"
}

// Habery holds our local identifiers and the key states we know.
type Habery struct {
	Kevers *Kevers

	l    sync.RWMutex
	habs map[string]*Hab
}

func NewHabery(kevers *Kevers) *Habery {
	if kevers == nil {
		kevers = NewKevers()
	}
	return &Habery{
		Kevers: kevers,
		habs:   make(map[string]*Hab),
	}
}

// MakeHab registers a local identifier whose inception is already in Kevers.
func (hby *Habery) MakeHab(name, pre string, member *Hab) (h *Hab, err error) {
	if !hby.Kevers.Has(pre) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPrefix, pre)
	}
	h = &Hab{Name: name, Pre: pre, Member: member, kevers: hby.Kevers}

	hby.l.Lock()
	defer hby.l.Unlock()
	hby.habs[pre] = h
	return h, nil
}

// Incept creates a new local identifier by appending the inception event.
func (hby *Habery) Incept(name string, opts ...Option) (h *Hab, err error) {
	defer err2.Handle(&err, "habery incept %s", name)

	e, err := Incept(opts...)
	if err != nil {
		return nil, err
	}
	if err := hby.Kevers.Append(e); err != nil {
		return nil, err
	}
	return hby.MakeHab(name, e.Prefix, nil)
}

func (hby *Habery) Hab(pre string) (h *Hab, ok bool) {
	hby.l.RLock()
	defer hby.l.RUnlock()
	h, ok = hby.habs[pre]
	return h, ok
}

// Has tells if the prefix is our local identifier.
func (hby *Habery) Has(pre string) bool {
	_, ok := hby.Hab(pre)
	return ok
}
