package exn

import (
	"sync"
)

// Log stores the exchange messages by SAID and indexes the responses by the
// SAID of the prior message.
type Log interface {
	Put(m *Message) error
	// Clone returns the stored message.
	Clone(said string) (*Message, bool)
	// SetResponse records that said is the response to prior.
	SetResponse(prior, said string) error
	// Response returns the response to the message.
	Response(said string) (*Message, bool)
}

// Unanswered tells if the message is stored and there is no response to it
// yet.
func Unanswered(log Log, said string) bool {
	if _, ok := log.Clone(said); !ok {
		return false
	}
	_, answered := log.Response(said)
	return !answered
}

// MemLog is the in memory Log.
type MemLog struct {
	l    sync.RWMutex
	msgs map[string]*Message
	erpy map[string]string
}

func NewMemLog() *MemLog {
	return &MemLog{
		msgs: make(map[string]*Message),
		erpy: make(map[string]string),
	}
}

func (ml *MemLog) Put(m *Message) error {
	ml.l.Lock()
	defer ml.l.Unlock()
	ml.msgs[m.SAID] = m
	return nil
}

func (ml *MemLog) Clone(said string) (*Message, bool) {
	ml.l.RLock()
	defer ml.l.RUnlock()
	m, ok := ml.msgs[said]
	if !ok {
		return nil, false
	}
	c := *m
	c.Raw = append([]byte(nil), m.Raw...)
	return &c, true
}

func (ml *MemLog) SetResponse(prior, said string) error {
	ml.l.Lock()
	defer ml.l.Unlock()
	ml.erpy[prior] = said
	return nil
}

func (ml *MemLog) Response(said string) (*Message, bool) {
	ml.l.RLock()
	rsaid, ok := ml.erpy[said]
	ml.l.RUnlock()
	if !ok {
		return nil, false
	}
	return ml.Clone(rsaid)
}
