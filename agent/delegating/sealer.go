/*
Package delegating implements the delegation escrow state machine of our own
delegated identifiers. The Sealer sends the delegated event to the delegator
and escrows it. The periodic sweep (ProcessEscrows) moves the escrowed events
from the unanchored escrow to the partially witnessed escrow when the
delegator has anchored them, and completes them when they are fully
witnessed:

	Delegate -> dune -> (anchor found) -> dpwe -> (witnessed) -> cdel

Completed events are removed from the escrows and their completion record is
written. Complete answers if an event is approved.
*/
package delegating

import (
	"context"
	"errors"
	"sync"

	"github.com/findy-network/findy-keri-agent/agent/escrow"
	"github.com/findy-network/findy-keri-agent/agent/exn"
	"github.com/findy-network/findy-keri-agent/agent/kel"
	"github.com/findy-network/findy-keri-agent/agent/pltype"
	"github.com/findy-network/findy-keri-agent/agent/witness"
	delegatereq "github.com/findy-network/findy-keri-agent/protocol/delegating"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Courier sends our events to other identifiers.
type Courier interface {
	Send(sender, dest, topic string, evt, atc []byte) error
}

// Receipts is the witness receipting of our events.
type Receipts interface {
	Request(pre string, sn uint64)
	Cued(pre string, sn uint64) bool
}

// Exchanger processes the delegate request exn built at completion.
type Exchanger interface {
	Process(m *exn.Message) error
}

// DefaultStarveAfter is the count of sweeps an entry may have all of its
// receipts without the witnessed cue before it's reported.
const DefaultStarveAfter = 120

type Config struct {
	Habery    *kel.Habery
	Store     escrow.Store
	Courier   Courier
	Receipts  Receipts
	Exchanger Exchanger

	// Proxy is the default proxy, optional.
	Proxy *kel.Hab

	// StarveAfter is DefaultStarveAfter if not set, negative disables.
	StarveAfter int
}

// Sealer runs the delegation escrows. ProcessEscrows must not be called
// concurrently, which the Runner guarantees.
type Sealer struct {
	Config

	l       sync.Mutex
	starved map[escrow.Key]int
}

func New(cfg Config) *Sealer {
	if cfg.StarveAfter == 0 {
		cfg.StarveAfter = DefaultStarveAfter
	}
	return &Sealer{Config: cfg, starved: make(map[escrow.Key]int)}
}

// Delegate sends our delegated event at sn to the delegator and escrows it
// to wait for the anchor. If sn is nil the current event is sent. The proxy
// is used as the sender only if the hab cannot send itself, see
// ResolveProxy.
func (s *Sealer) Delegate(pre string, sn *uint64, proxy *kel.Hab) (err error) {
	defer err2.Handle(&err, "delegate %s", pre)

	hab, ok := s.Habery.Hab(pre)
	if !ok {
		return validationErrorf("%s is not a valid local AID for delegation", pre)
	}
	ks, ok := hab.Kever()
	if !ok {
		return validationErrorf("no key state for %s", pre)
	}
	delpre := ks.Delegator
	if !s.Habery.Kevers.Has(delpre) {
		return validationErrorf("delegator %s not found, unable to process delegation", delpre)
	}

	n := ks.SN()
	if sn != nil {
		n = *sn
	}
	msg := try.To1(hab.MakeOwnEvent(n))

	phab := try.To1(ResolveProxy(ProxyInput{
		Hab:      hab,
		SN:       ks.SN(),
		Explicit: proxy,
		Default:  s.Proxy,
	}))

	e := try.To1(kel.Parse(msg))
	try.To(s.Courier.Send(phab.Pre, delpre, pltype.TopicDelegate, e.Raw, msg[e.Size():]))
	try.To(s.Store.Pin(escrow.Unanchored, escrow.KeyOf(e), e))

	glog.V(1).Infof("delegation of %s sent to %s by %s", e, delpre, phab)
	return nil
}

// Complete tells if the delegation of the event (pre, sn) is completed. If
// said is given it must match the completed event or it's a
// ValidationError.
func (s *Sealer) Complete(pre string, sn uint64, said *string) (ok bool, err error) {
	defer err2.Handle(&err, "complete %s:%d", pre, sn)

	csaid, err := s.Store.GetCompletion(pre, sn)
	if errors.Is(err, escrow.ErrNotFound) {
		return false, nil
	}
	try.To(err)
	if said != nil && *said != csaid {
		return false, validationErrorf("invalid delegation protocol escrowed event %s-%s",
			csaid, *said)
	}
	return true, nil
}

// Work runs one sweep. It's the Sealer's unit for the Runner.
func (s *Sealer) Work(context.Context) error {
	return s.ProcessEscrows()
}

// ProcessEscrows sweeps both escrows once. Entries are processed one by one
// and the error of an entry doesn't stop the sweep. All of the entry errors
// are returned joined.
func (s *Sealer) ProcessEscrows() error {
	return errors.Join(
		s.processUnanchored(),
		s.processPartialWitness(),
	)
}

func (s *Sealer) processUnanchored() (err error) {
	defer err2.Handle(&err, "unanchored escrow")

	items := try.To1(s.Store.Items(escrow.Unanchored))
	var errs []error
	for _, it := range items {
		if err := s.unanchored(it); err != nil {
			glog.Errorln("unanchored escrow:", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Sealer) unanchored(it escrow.Item) (err error) {
	defer err2.Handle(&err, "%s", it.Event)

	kevers := s.Habery.Kevers
	ks, ok := kevers.Get(it.Pre)
	if !ok {
		return validationErrorf("unknown identifier %s", it.Pre)
	}
	if !kevers.Has(ks.Delegator) {
		return validationErrorf("delegator %s not found, unable to process delegation",
			ks.Delegator)
	}

	seal := it.Event.Seal()
	anchor := kevers.FindAnchoringSealEvent(ks.Delegator, seal)
	if anchor == nil {
		glog.V(3).Infoln("no anchor yet for", seal)
		return nil
	}

	// authorizer event seal must be there before the entry is in dpwe
	try.To(s.Store.SetAES(it.Key, escrow.Couple{SN: anchor.SN(), SAID: anchor.SAID}))
	s.Receipts.Request(it.Pre, it.Event.SN())

	try.To(s.Store.Pin(escrow.PartiallyWitnessed, it.Key, it.Event))
	try.To(s.Store.Rem(escrow.Unanchored, it.Key))

	glog.V(1).Infof("anchored by %s, waiting for fully signed witness receipts for %s",
		anchor, it.Event)
	return nil
}

func (s *Sealer) processPartialWitness() (err error) {
	defer err2.Handle(&err, "partial witness escrow")

	items := try.To1(s.Store.Items(escrow.PartiallyWitnessed))
	var errs []error
	for _, it := range items {
		if err := s.partialWitness(it); err != nil {
			glog.Errorln("partial witness escrow:", err)
			errs = append(errs, err)
		}
	}
	s.pruneStarved(items)
	return errors.Join(errs...)
}

func (s *Sealer) partialWitness(it escrow.Item) (err error) {
	defer err2.Handle(&err, "%s", it.Event)

	ks, ok := s.Habery.Kevers.Get(it.Pre)
	if !ok {
		return validationErrorf("unknown identifier %s", it.Pre)
	}
	sn := it.Event.SN()

	wigs := try.To1(s.Store.Wigs(it.Key))
	if witness.Count(wigs, ks.Wits) < len(ks.Wits) {
		glog.V(3).Infof("receipts %d/%d for %s", len(wigs), len(ks.Wits), it.Event)
		return nil
	}
	if len(ks.Wits) > 0 && !s.Receipts.Cued(it.Pre, sn) {
		s.starve(it)
		return nil
	}

	glog.V(1).Infof("witness receipts complete, %s confirmed", it.Event)
	try.To(s.complete(it, ks))
	s.fed(it.Key)
	return nil
}

// complete notifies about the approved event and moves it from the escrow to
// the completion records. An event which already has its completion record is
// only removed from the escrow. If the record is of another event the entry is
// removed as a ValidationError, and neither is notified again.
func (s *Sealer) complete(it escrow.Item, ks kel.KeyState) (err error) {
	defer err2.Handle(&err, "complete")

	sn := it.Event.SN()
	csaid, err := s.Store.GetCompletion(it.Pre, sn)
	switch {
	case err == nil && csaid == it.SAID:
		glog.Warningln("already completed, removed from dpwe:", it.Event)
		return s.Store.Rem(escrow.PartiallyWitnessed, it.Key)
	case err == nil:
		try.To(s.Store.Rem(escrow.PartiallyWitnessed, it.Key))
		return validationErrorf("%s:%d is completed as %s, %s removed from dpwe",
			it.Pre, sn, csaid, it.SAID)
	case !errors.Is(err, escrow.ErrNotFound):
		return err
	}

	hab, ok := s.Habery.Hab(it.Pre)
	if !ok {
		return validationErrorf("%s is not a valid local AID for delegation", it.Pre)
	}
	phab := try.To1(ResolveProxy(ProxyInput{
		Hab:     hab,
		SN:      ks.SN(),
		Default: s.Proxy,
	}))
	if !s.Habery.Kevers.Has(ks.Delegator) {
		return validationErrorf("delegator %s not found, unable to process delegation",
			ks.Delegator)
	}

	msg := try.To1(hab.MakeOwnEvent(sn))
	m, _ := try.To2(delegatereq.RequestExn(phab.Pre, it.Pre, msg, nil))
	try.To(s.Exchanger.Process(m))

	// record first, a crash before Rem is fixed by Recover
	try.To(s.Store.PutCompletion(it.Pre, sn, it.SAID))
	try.To(s.Store.Rem(escrow.PartiallyWitnessed, it.Key))
	return nil
}

// Recover cleans the escrows after a crash in the middle of the queue
// migration or the completion. An entry which is in both of the escrows is
// removed from the unanchored one, and a completed entry is removed from the
// partially witnessed one. The receipts of the rest of the partially
// witnessed entries are requested again because the requests and the cues
// live only in memory.
func (s *Sealer) Recover() (err error) {
	defer err2.Handle(&err, "recover escrows")

	for _, it := range try.To1(s.Store.Items(escrow.Unanchored)) {
		if try.To1(s.Store.Has(escrow.PartiallyWitnessed, it.Key)) {
			glog.Warningln("duplicate escrow entry removed from dune:", it.Event)
			try.To(s.Store.Rem(escrow.Unanchored, it.Key))
		}
	}
	for _, it := range try.To1(s.Store.Items(escrow.PartiallyWitnessed)) {
		said, err := s.Store.GetCompletion(it.Pre, it.Event.SN())
		if errors.Is(err, escrow.ErrNotFound) {
			s.Receipts.Request(it.Pre, it.Event.SN())
			continue
		}
		try.To(err)
		if said == it.SAID {
			glog.Warningln("completed escrow entry removed from dpwe:", it.Event)
			try.To(s.Store.Rem(escrow.PartiallyWitnessed, it.Key))
		}
	}
	return nil
}

// starve counts the sweeps where the entry has all of the receipts but no
// witnessed cue. The receiptor may have dropped the cue which would leave the
// entry in the escrow for good.
func (s *Sealer) starve(it escrow.Item) {
	s.l.Lock()
	defer s.l.Unlock()

	s.starved[it.Key]++
	n := s.starved[it.Key]
	if s.StarveAfter > 0 && n%s.StarveAfter == 0 {
		glog.Warningf("%s fully receipted without witnessed cue for %d sweeps",
			it.Event, n)
	}
}

func (s *Sealer) fed(key escrow.Key) {
	s.l.Lock()
	defer s.l.Unlock()
	delete(s.starved, key)
}

func (s *Sealer) pruneStarved(items []escrow.Item) {
	s.l.Lock()
	defer s.l.Unlock()

	present := make(map[escrow.Key]bool, len(items))
	for _, it := range items {
		present[it.Key] = true
	}
	for k := range s.starved {
		if !present[k] {
			delete(s.starved, k)
		}
	}
}

// Starved returns how many sweeps the entry has waited for the witnessed
// cue with all of its receipts.
func (s *Sealer) Starved(key escrow.Key) int {
	s.l.Lock()
	defer s.l.Unlock()
	return s.starved[key]
}
