/*
Package escrow is the durable storage of the delegation escrows. It holds the
two escrow queues, the authorizer event seals, the witness receipts and the
delegation completion records.

Every Store operation is atomic on its own. Nothing spans over two operations,
which is why callers moving an entry between queues must Pin to the
destination before they Rem from the source.
*/
package escrow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/findy-network/findy-keri-agent/agent/kel"
)

// Queue is the name of the escrow queue. The names are the database names of
// the KERI escrows.
type Queue string

const (
	// Unanchored holds delegated events whose anchoring seal isn't yet in the
	// delegator's KEL.
	Unanchored Queue = "dune"
	// PartiallyWitnessed holds anchored events waiting for the full set of
	// witness receipts.
	PartiallyWitnessed Queue = "dpwe"
)

// Queues lists all of the escrow queues in processing order.
var Queues = []Queue{Unanchored, PartiallyWitnessed}

var (
	ErrNotFound = errors.New("not found")
	ErrMismatch = errors.New("completion digest mismatch")
	ErrQueue    = errors.New("unknown escrow queue")
)

const sep = "."

// Key is the digest key (dgKey) of the event: identifier prefix and event
// SAID.
type Key struct {
	Pre  string
	SAID string
}

func (k Key) String() string {
	return k.Pre + sep + k.SAID
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (k Key, err error) {
	pre, said, ok := strings.Cut(s, sep)
	if !ok || pre == "" || said == "" {
		return k, fmt.Errorf("bad escrow key %q", s)
	}
	return Key{Pre: pre, SAID: said}, nil
}

// KeyOf returns the digest key of the event.
func KeyOf(e *kel.Event) Key {
	return Key{Pre: e.Prefix, SAID: e.SAID}
}

// Item is an escrow queue entry.
type Item struct {
	Key
	Event *kel.Event
}

// Couple is the authorizer event seal source couple: sequence number and SAID
// of the delegator's anchoring event.
type Couple struct {
	SN   uint64
	SAID string
}

// QB64 returns the couple as Seqner qb64 concatenated with the SAID.
func (c Couple) QB64() string {
	return kel.SeqQB64(c.SN) + c.SAID
}

// ParseCouple is the inverse of Couple.QB64.
func ParseCouple(s string) (c Couple, err error) {
	if len(s) != kel.SeqnerLen+kel.DigestLen {
		return c, fmt.Errorf("bad couple length %d", len(s))
	}
	sn, err := kel.ParseSeqQB64(s[:kel.SeqnerLen])
	if err != nil {
		return c, err
	}
	return Couple{SN: sn, SAID: s[kel.SeqnerLen:]}, nil
}

// Wig is an indexed witness signature (receipt) of an event.
type Wig struct {
	Witness string
	Sig     string
}

// Store is the storage interface of the delegation escrows. Implementations
// must be safe for concurrent use and every method is atomic per key.
type Store interface {
	// Pin upserts the event to the queue by the key.
	Pin(q Queue, key Key, e *kel.Event) error
	// Rem removes the key from the queue. Removing a missing key is not an
	// error.
	Rem(q Queue, key Key) error
	Has(q Queue, key Key) (bool, error)
	// Items returns all of the entries of the queue in key order.
	Items(q Queue) ([]Item, error)

	// SetAES records the authorizer event seal couple for the event.
	SetAES(key Key, c Couple) error
	// GetAES returns ErrNotFound if nothing is recorded.
	GetAES(key Key) (Couple, error)

	// AddWig adds the witness receipt. A witness has one receipt per event.
	AddWig(key Key, wit, sig string) error
	Wigs(key Key) ([]Wig, error)

	// PutCompletion writes the completion record (pre, sn) -> SAID. It
	// returns ErrMismatch if the record exists with another SAID.
	PutCompletion(pre string, sn uint64, said string) error
	// GetCompletion returns ErrNotFound if the record doesn't exist.
	GetCompletion(pre string, sn uint64) (string, error)

	Close() error
}

// record is the stored presentation of the escrowed event.
type record struct {
	Raw []byte
}

func (r *record) event() (*kel.Event, error) {
	return kel.Parse(r.Raw)
}

func completionKey(pre string, sn uint64) string {
	return pre + sep + kel.SeqQB64(sn)
}

func wigKey(key Key, wit string) string {
	return key.String() + sep + wit
}

func checkQueue(q Queue) error {
	switch q {
	case Unanchored, PartiallyWitnessed:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrQueue, q)
}
