package bus

import (
	"container/list"
	"sort"
	"sync"
	"time"

	"github.com/findy-network/findy-keri-agent/agent/utils"
	"github.com/golang/glog"
	"github.com/lainio/err2/assert"
)

// Attrs are the free form attributes of the notification, e.g. r for the
// route and d for the SAID of the exchange message.
type Attrs map[string]any

// Route returns the r attribute.
func (a Attrs) Route() string {
	r, _ := a["r"].(string)
	return r
}

type Notification struct {
	ID        string
	Timestamp int64
	Read      bool
	Attrs     Attrs

	seq uint64
}

// ListenKey identifies a listener, usually a connected controller client.
type ListenKey struct {
	ClientID string
}

func (k ListenKey) String() string {
	return "ListenKey:" + k.ClientID
}

type NotifyChan chan Notification

// listenerCap is the channel capacity of a listener. A listener which
// doesn't keep up is skipped and the note is buffered instead.
const listenerCap = 16

type buffer struct {
	buf *list.List
	sync.Mutex
}

// Notifier keeps the notes and broadcasts them to the listeners. If no one
// listens the notes are buffered and sent when a listener is added.
type Notifier struct {
	listeners map[ListenKey]NotifyChan
	sync.Mutex

	// buffer stores notifications if no one listens
	buffer

	notes struct {
		m   map[string]*Notification
		seq uint64
		sync.RWMutex
	}
}

func New() *Notifier {
	n := &Notifier{
		listeners: make(map[ListenKey]NotifyChan),
		buffer:    buffer{buf: list.New()},
	}
	n.notes.m = make(map[string]*Notification)
	return n
}

// Add stores the note with the attributes and broadcasts it. It returns the
// id of the new note.
func (n *Notifier) Add(attrs Attrs) string {
	note := Notification{
		ID:        utils.UUID(),
		Timestamp: time.Now().UnixNano(),
		Attrs:     attrs,
	}
	n.notes.Lock()
	n.notes.seq++
	note.seq = n.notes.seq
	n.notes.m[note.ID] = &note
	n.notes.Unlock()

	glog.V(3).Infoln("notify:", note.ID, attrs.Route())
	n.Broadcast(note)
	return note.ID
}

// Get returns a copy of the note.
func (n *Notifier) Get(id string) (note Notification, ok bool) {
	n.notes.RLock()
	defer n.notes.RUnlock()
	p, ok := n.notes.m[id]
	if ok {
		note = *p
	}
	return note, ok
}

// List returns the notes in the order they were added.
func (n *Notifier) List() []Notification {
	n.notes.RLock()
	notes := make([]Notification, 0, len(n.notes.m))
	for _, p := range n.notes.m {
		notes = append(notes, *p)
	}
	n.notes.RUnlock()

	sort.Slice(notes, func(i, j int) bool {
		return notes[i].seq < notes[j].seq
	})
	return notes
}

// MarkRead marks the note read. It returns false if the note isn't found.
func (n *Notifier) MarkRead(id string) bool {
	n.notes.Lock()
	defer n.notes.Unlock()
	p, ok := n.notes.m[id]
	if ok {
		p.Read = true
	}
	return ok
}

// Rem removes the note.
func (n *Notifier) Rem(id string) bool {
	n.notes.Lock()
	defer n.notes.Unlock()
	_, ok := n.notes.m[id]
	delete(n.notes.m, id)
	return ok
}

func (n *Notifier) AddListener(key ListenKey) NotifyChan {
	c := make(NotifyChan, listenerCap)

	n.Lock()
	_, alreadyExists := n.listeners[key]
	assert.That(!alreadyExists, "key: %s, already exists", key)
	n.listeners[key] = c
	n.Unlock()

	glog.V(4).Infoln("notify ADD for:", key.ClientID)

	go n.checkBuffered()
	return c
}

// RmListener removes the listener and closes its channel.
func (n *Notifier) RmListener(key ListenKey) {
	n.Lock()
	defer n.Unlock()

	glog.V(4).Infoln("notify RM for:", key.ClientID)
	ch, ok := n.listeners[key]
	if ok {
		close(ch)
		delete(n.listeners, key)
	}
}

// Broadcast sends the note to all listeners. If no one is listening the note
// is buffered.
func (n *Notifier) Broadcast(note Notification) {
	n.Lock()
	defer n.Unlock()

	if !n.broadcast(&note) {
		glog.V(3).Infoln("there are no one to listen us!")
		n.pushBuffered(&note)
	}
}

func (n *Notifier) pushBuffered(note *Notification) {
	n.Unlock()
	n.buffer.Lock()
	defer n.buffer.Unlock()
	defer n.Lock()

	n.buffer.buf.PushBack(note)
}

// checkBuffered sends all buffered notifications to listeners and removes
// the sent ones from the buffer.
func (n *Notifier) checkBuffered() {
	n.buffer.Lock()
	defer n.buffer.Unlock()

	l := n.buffer.buf

	// using linked list this way it's safe to remove items during iteration
	for e := l.Front(); e != nil; {
		note := e.Value.(*Notification)

		old := e
		e = e.Next()

		if n.lockedBroadcast(note) {
			l.Remove(old)
		}
	}
	glog.V(3).Infoln("checkBuffered done")
}

// lockedBroadcast is the thread safe version of the broadcast for the
// algorithms which need this locking order. It frees the buffer lock first
// and takes the map lock for the broadcast. In the end it does it in the
// reverse order.
func (n *Notifier) lockedBroadcast(note *Notification) (sent bool) {
	n.buffer.Unlock()
	n.Lock()

	sent = n.broadcast(note)

	n.Unlock()
	n.buffer.Lock()

	return sent
}

// broadcast sends the note to listeners. Note! It doesn't lock the maps.
func (n *Notifier) broadcast(note *Notification) (sent bool) {
	for key, ch := range n.listeners {
		select {
		case ch <- *note:
			glog.V(3).Infoln("notify:", note.ID, "to:", key.ClientID)
			sent = true
		default:
			glog.Warningln("listener is full:", key.ClientID)
		}
	}
	return sent
}

// Buffered returns the count of notes waiting for a listener.
func (n *Notifier) Buffered() int {
	n.buffer.Lock()
	defer n.buffer.Unlock()
	return n.buffer.buf.Len()
}

// Adder is the notification sink of the protocol handlers.
type Adder interface {
	Add(attrs Attrs) string
}
