package kel

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Event ilks
const (
	Icp = "icp"
	Rot = "rot"
	Ixn = "ixn"
	Dip = "dip"
	Drt = "drt"
)

var ErrSAID = errors.New("said mismatch")

// SAD is self-addressing data: a message which carries its own digest and a
// version string telling the size of the serialization.
type SAD interface {
	SetVersion(v string)
	SetSAID(said string)
}

// Marshal serializes v with the given kind.
func Marshal(v any, kind Kind) ([]byte, error) {
	switch kind {
	case JSON:
		return json.Marshal(v)
	case CBOR:
		return cbor.Marshal(v)
	}
	return nil, fmt.Errorf("unsupported serialization kind %q", kind)
}

// Unmarshal deserializes the raw with the given kind to v.
func Unmarshal(raw []byte, v any, kind Kind) error {
	switch kind {
	case JSON:
		return json.Unmarshal(raw, v)
	case CBOR:
		return cbor.Unmarshal(raw, v)
	}
	return fmt.Errorf("unsupported serialization kind %q", kind)
}

// Saidify calculates the version string and the SAID of the sad and returns
// its final serialization. The digest is taken over the serialization where
// the SAID field is filled with the dummy characters.
func Saidify(sad SAD, kind Kind) (raw []byte, err error) {
	defer err2.Handle(&err, "saidify")

	sad.SetSAID(dummySAID)
	sad.SetVersion(versify(kind, 0))
	raw = try.To1(Marshal(sad, kind))
	sad.SetVersion(versify(kind, len(raw)))
	raw = try.To1(Marshal(sad, kind))
	sad.SetSAID(Digest(raw))
	return Marshal(sad, kind)
}

// Seal is the anchor a delegator puts to its own KEL to approve an event of
// the delegated identifier.
type Seal struct {
	Prefix string `json:"i"`
	SNHex  string `json:"s"`
	SAID   string `json:"d"`
}

func (s Seal) String() string {
	return s.Prefix + ":" + s.SNHex + ":" + s.SAID
}

// Event is a key event of an identifier. Only the fields needed by delegation
// processing are modeled. The signing keys are carried as qb64 strings and
// they are not verified here.
type Event struct {
	Version   string   `json:"v"`
	Ilk       string   `json:"t"`
	SAID      string   `json:"d"`
	Prefix    string   `json:"i"`
	SNHex     string   `json:"s"`
	Prior     string   `json:"p,omitempty"`
	Keys      []string `json:"k,omitempty"`
	Delegator string   `json:"di,omitempty"`
	Wits      []string `json:"b,omitempty"`
	Seals     []Seal   `json:"a"`

	Kind Kind   `json:"-"`
	Raw  []byte `json:"-"`

	selfAddressing bool
}

func (e *Event) SetVersion(v string) {
	e.Version = v
}

func (e *Event) SetSAID(said string) {
	e.SAID = said
	if e.selfAddressing {
		e.Prefix = said
	}
}

// SN returns the sequence number of the event.
func (e *Event) SN() uint64 {
	sn, err := ParseSNHex(e.SNHex)
	if err != nil {
		return 0
	}
	return sn
}

// Size is the size of the serialized event without attachments.
func (e *Event) Size() int {
	return len(e.Raw)
}

// Seal returns the seal which anchors this event.
func (e *Event) Seal() Seal {
	return Seal{Prefix: e.Prefix, SNHex: e.SNHex, SAID: e.SAID}
}

// Anchors tells if the event has the seal in its seal list.
func (e *Event) Anchors(seal Seal) bool {
	for _, s := range e.Seals {
		if s == seal {
			return true
		}
	}
	return false
}

// Establishment tells if the event is an establishment event.
func (e *Event) Establishment() bool {
	switch e.Ilk {
	case Icp, Rot, Dip, Drt:
		return true
	}
	return false
}

// Verify recalculates the SAID of the event and compares it.
func (e *Event) Verify() bool {
	c := *e
	c.Raw = nil
	c.selfAddressing = (e.Ilk == Icp || e.Ilk == Dip) && e.Prefix == e.SAID
	if _, err := Saidify(&c, e.Kind); err != nil {
		return false
	}
	return c.SAID == e.SAID
}

func (e *Event) String() string {
	return fmt.Sprintf("%s %s sn:%s d:%s", e.Ilk, e.Prefix, e.SNHex, e.SAID)
}

// Parse parses the event from the front of the raw message. Rest of the raw
// are attachments, see Size.
func Parse(raw []byte) (e *Event, err error) {
	defer err2.Handle(&err, "parse event")

	kind, size := try.To2(Sniff(raw))
	e = new(Event)
	try.To(Unmarshal(raw[:size], e, kind))
	e.Kind = kind
	e.Raw = append([]byte(nil), raw[:size]...)
	try.To1(ParseSNHex(e.SNHex))
	if !e.Verify() {
		return nil, fmt.Errorf("%w: %s", ErrSAID, e.SAID)
	}
	return e, nil
}

// ParseAll parses the stream of events without attachments, e.g. a KEL
// export.
func ParseAll(raw []byte) (evts []*Event, err error) {
	defer err2.Handle(&err, "parse stream")

	for len(raw) > 0 {
		e := try.To1(Parse(raw))
		evts = append(evts, e)
		raw = raw[e.Size():]
	}
	return evts, nil
}

// Option sets optional fields of new events.
type Option func(e *Event)

func WithWitnesses(wits ...string) Option {
	return func(e *Event) {
		e.Wits = wits
	}
}

// WithKeys sets the signing keys of the establishment event. Inceptions of
// different keys have different prefixes.
func WithKeys(keys ...string) Option {
	return func(e *Event) {
		e.Keys = keys
	}
}

func WithDelegator(pre string) Option {
	return func(e *Event) {
		e.Delegator = pre
	}
}

func WithSeals(seals ...Seal) Option {
	return func(e *Event) {
		e.Seals = append(e.Seals, seals...)
	}
}

func WithKind(kind Kind) Option {
	return func(e *Event) {
		e.Kind = kind
	}
}

// Incept builds a self-addressing inception event. If delegator is given with
// WithDelegator the ilk is delegated inception.
func Incept(opts ...Option) (e *Event, err error) {
	defer err2.Handle(&err, "incept")

	e = &Event{
		Ilk:            Icp,
		SNHex:          SNHex(0),
		Seals:          []Seal{},
		Kind:           JSON,
		selfAddressing: true,
	}
	for _, o := range opts {
		o(e)
	}
	if e.Delegator != "" {
		e.Ilk = Dip
	}
	if e.Wits == nil {
		e.Wits = []string{}
	}
	e.Raw = try.To1(Saidify(e, e.Kind))
	return e, nil
}

// Interact builds an interaction event following the prior event.
func Interact(prior *Event, opts ...Option) (e *Event, err error) {
	defer err2.Handle(&err, "interact")

	e = next(prior, Ixn, opts...)
	e.Raw = try.To1(Saidify(e, e.Kind))
	return e, nil
}

// Rotate builds a rotation event following the prior event. If delegator is
// given with WithDelegator the ilk is delegated rotation.
func Rotate(prior *Event, opts ...Option) (e *Event, err error) {
	defer err2.Handle(&err, "rotate")

	e = next(prior, Rot, opts...)
	if e.Delegator != "" {
		e.Ilk = Drt
	}
	if e.Wits == nil {
		e.Wits = []string{}
	}
	e.Raw = try.To1(Saidify(e, e.Kind))
	return e, nil
}

func next(prior *Event, ilk string, opts ...Option) *Event {
	e := &Event{
		Ilk:    ilk,
		Prefix: prior.Prefix,
		SNHex:  SNHex(prior.SN() + 1),
		Prior:  prior.SAID,
		Seals:  []Seal{},
		Kind:   prior.Kind,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}
