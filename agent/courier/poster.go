/*
Package courier sends our events to other identifiers. Messages are queued by
Send and delivered by the Poster's Work which the scheduler runs. The peer
transport itself is given as a Transport.
*/
package courier

import (
	"container/list"
	"context"
	"errors"
	"sync"

	"github.com/findy-network/findy-keri-agent/agent/utils"
	"github.com/golang/glog"
)

// Message is an addressed, topic-tagged event with its attachments.
type Message struct {
	ID         string
	Sender     string
	Dest       string
	Topic      string
	Event      []byte
	Attachment []byte
}

// Transport delivers the message to its destination.
type Transport interface {
	Deliver(ctx context.Context, m Message) error
}

// TransportFunc is an adapter to use ordinary functions as Transports.
type TransportFunc func(ctx context.Context, m Message) error

func (f TransportFunc) Deliver(ctx context.Context, m Message) error {
	return f(ctx, m)
}

// LogTransport only logs the messages. It's used when the agent runs without
// a peer transport.
var LogTransport = TransportFunc(func(_ context.Context, m Message) error {
	glog.Infof("courier %s -> %s [%s] %d bytes", m.Sender, m.Dest, m.Topic,
		len(m.Event)+len(m.Attachment))
	return nil
})

// MaxTries is how many times the delivery is tried before the message is
// dropped.
const MaxTries = 5

type envelope struct {
	Message
	tries int
}

// Poster is the outbound message queue.
type Poster struct {
	transport Transport

	l   sync.Mutex
	out *list.List
}

func NewPoster(t Transport) *Poster {
	return &Poster{transport: t, out: list.New()}
}

// Send queues the event for the destination. It doesn't block.
func (p *Poster) Send(sender, dest, topic string, evt, atc []byte) error {
	if dest == "" {
		return errors.New("courier: destination missing")
	}
	m := Message{
		ID:         utils.UUID(),
		Sender:     sender,
		Dest:       dest,
		Topic:      topic,
		Event:      append([]byte(nil), evt...),
		Attachment: append([]byte(nil), atc...),
	}
	p.l.Lock()
	p.out.PushBack(&envelope{Message: m})
	p.l.Unlock()

	glog.V(3).Infof("courier queued %s %s -> %s [%s]", m.ID, sender, dest, topic)
	return nil
}

// Pending returns the count of messages waiting for the delivery.
func (p *Poster) Pending() int {
	p.l.Lock()
	defer p.l.Unlock()
	return p.out.Len()
}

func (p *Poster) pop() *envelope {
	p.l.Lock()
	defer p.l.Unlock()

	e := p.out.Front()
	if e == nil {
		return nil
	}
	return p.out.Remove(e).(*envelope)
}

func (p *Poster) push(env *envelope) {
	p.l.Lock()
	defer p.l.Unlock()
	p.out.PushBack(env)
}

// Work delivers the messages queued at the time of the call. Failed ones are
// queued again until MaxTries is reached.
func (p *Poster) Work(ctx context.Context) error {
	var errs []error
	for n := p.Pending(); n > 0; n-- {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		env := p.pop()
		if env == nil {
			break
		}
		if err := p.transport.Deliver(ctx, env.Message); err != nil {
			env.tries++
			if env.tries < MaxTries {
				p.push(env)
			} else {
				glog.Errorf("courier dropped %s to %s: %v", env.ID, env.Dest, err)
			}
			errs = append(errs, err)
			continue
		}
		glog.V(3).Infoln("courier delivered", env.ID)
	}
	return errors.Join(errs...)
}
