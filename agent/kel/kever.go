package kel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"
)

var (
	ErrUnknownPrefix = errors.New("unknown prefix")
	ErrOutOfOrder    = errors.New("event out of order")
)

// KeyState is the local view of the identifier's key event log. The events
// are kept in the first seen order which is the sequence number order here.
type KeyState struct {
	Prefix    string
	Delegator string
	Wits      []string
	Events    []*Event
}

// SN returns the sequence number of the latest event.
func (k *KeyState) SN() uint64 {
	if e := k.Last(); e != nil {
		return e.SN()
	}
	return 0
}

func (k *KeyState) Last() *Event {
	if len(k.Events) == 0 {
		return nil
	}
	return k.Events[len(k.Events)-1]
}

// EventAt returns the event at sequence number sn or nil.
func (k *KeyState) EventAt(sn uint64) *Event {
	if sn >= uint64(len(k.Events)) {
		return nil
	}
	return k.Events[sn]
}

// Kevers is the registry of known key states by prefix. It's safe for
// concurrent use. Note! It only orders the events, validation of signatures
// and receipts is done before events are given to it.
type Kevers struct {
	l  sync.RWMutex
	ks map[string]*KeyState
}

func NewKevers() *Kevers {
	return &Kevers{ks: make(map[string]*KeyState)}
}

// Get returns a snapshot of the key state.
func (k *Kevers) Get(pre string) (ks KeyState, ok bool) {
	k.l.RLock()
	defer k.l.RUnlock()

	s, ok := k.ks[pre]
	if !ok {
		return ks, false
	}
	ks = *s
	ks.Wits = append([]string(nil), s.Wits...)
	ks.Events = append([]*Event(nil), s.Events...)
	return ks, true
}

// Has tells if the prefix is known.
func (k *Kevers) Has(pre string) bool {
	k.l.RLock()
	defer k.l.RUnlock()
	_, ok := k.ks[pre]
	return ok
}

// Append adds the event to the end of the identifier's log. An inception
// creates the key state.
func (k *Kevers) Append(e *Event) error {
	k.l.Lock()
	defer k.l.Unlock()

	s, ok := k.ks[e.Prefix]
	if !ok {
		if e.Ilk != Icp && e.Ilk != Dip {
			return fmt.Errorf("%w: %s", ErrUnknownPrefix, e.Prefix)
		}
		s = &KeyState{Prefix: e.Prefix, Delegator: e.Delegator}
		k.ks[e.Prefix] = s
	} else if e.SN() != uint64(len(s.Events)) {
		return fmt.Errorf("%w: %s sn %d, have %d", ErrOutOfOrder,
			e.Prefix, e.SN(), len(s.Events))
	}
	if e.Establishment() {
		s.Wits = append([]string(nil), e.Wits...)
	}
	s.Events = append(s.Events, e)
	glog.V(3).Infoln("kel append:", e)
	return nil
}

// FindAnchoringSealEvent searches the delegator's log for an event which has
// the seal in its seal list.
func (k *Kevers) FindAnchoringSealEvent(delpre string, seal Seal) *Event {
	k.l.RLock()
	defer k.l.RUnlock()

	s, ok := k.ks[delpre]
	if !ok {
		return nil
	}
	for _, e := range s.Events {
		if e.Anchors(seal) {
			return e
		}
	}
	return nil
}
