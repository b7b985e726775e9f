/*
Package exn implements the peer-to-peer exchange messages (exn). A message is
self-addressing: its SAID is the digest of its own serialization. Received
messages are routed by the Exchanger to the protocol handlers registered for
the route.
*/
package exn

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/findy-network/findy-keri-agent/agent/kel"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Ilk of the exchange message.
const Ilk = "exn"

// DateFormat is the ISO-8601 format with microseconds used in dt field.
const DateFormat = "2006-01-02T15:04:05.000000-07:00"

var ErrIlk = errors.New("not an exn message")

// Message is an exchange message. Attrs are the payload of the route and
// Embeds carry embedded events and other SADs.
type Message struct {
	Version   string         `json:"v"`
	Ilk       string         `json:"t"`
	SAID      string         `json:"d"`
	Sender    string         `json:"i"`
	Recipient string         `json:"rp"`
	Prior     string         `json:"p"`
	Date      string         `json:"dt"`
	Route     string         `json:"r"`
	Query     map[string]any `json:"q"`
	Attrs     map[string]any `json:"a"`
	Embeds    map[string]any `json:"e"`

	Raw []byte `json:"-"`
}

func (m *Message) SetVersion(v string) {
	m.Version = v
}

func (m *Message) SetSAID(said string) {
	m.SAID = said
}

// Verify recalculates the SAID of the message and compares it.
func (m *Message) Verify() bool {
	c := *m
	c.Raw = nil
	if _, err := kel.Saidify(&c, kel.JSON); err != nil {
		return false
	}
	return c.SAID == m.SAID
}

func (m *Message) String() string {
	return fmt.Sprintf("exn %s %s d:%s", m.Route, m.Sender, m.SAID)
}

// Option sets optional fields of the new message.
type Option func(m *Message)

// WithPrior sets the SAID of the message this one responds to.
func WithPrior(said string) Option {
	return func(m *Message) {
		m.Prior = said
	}
}

func WithRecipient(pre string) Option {
	return func(m *Message) {
		m.Recipient = pre
	}
}

func WithDate(t time.Time) Option {
	return func(m *Message) {
		m.Date = t.Format(DateFormat)
	}
}

func WithQuery(q map[string]any) Option {
	return func(m *Message) {
		m.Query = q
	}
}

// WithEmbeds sets embedded SADs by their labels.
func WithEmbeds(e map[string]any) Option {
	return func(m *Message) {
		m.Embeds = e
	}
}

// Exchange builds a new exn message from the sender to the route with the
// payload. Messages are always serialized as JSON.
func Exchange(route string, payload map[string]any, sender string, opts ...Option) (m *Message, err error) {
	defer err2.Handle(&err, "exchange %s", route)

	if payload == nil {
		payload = map[string]any{}
	}
	m = &Message{
		Ilk:    Ilk,
		Sender: sender,
		Route:  route,
		Date:   time.Now().UTC().Format(DateFormat),
		Query:  map[string]any{},
		Attrs:  payload,
		Embeds: map[string]any{},
	}
	for _, o := range opts {
		o(m)
	}
	m.Raw = try.To1(kel.Saidify(m, kel.JSON))
	return m, nil
}

// Parse parses the exn message from the front of the raw. The rest of the
// raw are attachments.
func Parse(raw []byte) (m *Message, err error) {
	defer err2.Handle(&err, "parse exn")

	kind, size := try.To2(kel.Sniff(raw))
	if kind != kel.JSON {
		return nil, fmt.Errorf("unsupported exn kind %s", kind)
	}
	m = new(Message)
	try.To(json.Unmarshal(raw[:size], m))
	if m.Ilk != Ilk {
		return nil, fmt.Errorf("%w: %q", ErrIlk, m.Ilk)
	}
	m.Raw = append([]byte(nil), raw[:size]...)
	if !m.Verify() {
		return nil, fmt.Errorf("%w: %s", kel.ErrSAID, m.SAID)
	}
	return m, nil
}
