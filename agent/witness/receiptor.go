/*
Package witness requests the witness receipts of our own events. The actual
witness I/O is done by the Collector. The Receiptor stores the receipts to the
escrow store and raises a cue when an event is fully witnessed.
*/
package witness

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/findy-network/findy-keri-agent/agent/escrow"
	"github.com/findy-network/findy-keri-agent/agent/kel"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

type Receipt struct {
	Witness string
	Sig     string
}

// Collector gets the receipts of the event from the witnesses.
type Collector interface {
	Collect(ctx context.Context, e *kel.Event, wits []string) ([]Receipt, error)
}

// CollectorFunc is an adapter to use ordinary functions as Collectors.
type CollectorFunc func(ctx context.Context, e *kel.Event, wits []string) ([]Receipt, error)

func (f CollectorFunc) Collect(ctx context.Context, e *kel.Event, wits []string) ([]Receipt, error) {
	return f(ctx, e, wits)
}

// Stored is the Collector for witnesses which deliver their receipts straight
// to our escrow store. There is nothing to collect, the Receiptor only counts
// the stored receipts.
var Stored = CollectorFunc(func(context.Context, *kel.Event, []string) ([]Receipt, error) {
	return nil, nil
})

// Cue tells that the event at (Pre, SN) is fully witnessed.
type Cue struct {
	Pre string
	SN  uint64
}

type request struct {
	Cue
	tries int
}

// MaxTries is how many times an invalid request is tried before it's dropped.
// An invalid request has no event to witness yet, i.e. the prefix is unknown or
// there is no event at the sn. Requests of existing events are kept until they
// are fully witnessed.
const MaxTries = 10

// ErrRequest tells that there is no event for the request.
var ErrRequest = errors.New("no event to witness")

// Receiptor collects the witness receipts for the requested events. Requests
// are processed by Work which is run by the scheduler.
type Receiptor struct {
	store     escrow.Store
	kevers    *kel.Kevers
	collector Collector

	l        sync.Mutex
	requests *list.List
	cues     map[Cue]struct{}
}

func NewReceiptor(store escrow.Store, kevers *kel.Kevers, c Collector) *Receiptor {
	return &Receiptor{
		store:     store,
		kevers:    kevers,
		collector: c,
		requests:  list.New(),
		cues:      make(map[Cue]struct{}),
	}
}

// Request queues the receipt collection of the event. Already cued and
// already queued events are not queued again.
func (r *Receiptor) Request(pre string, sn uint64) {
	r.l.Lock()
	defer r.l.Unlock()

	c := Cue{Pre: pre, SN: sn}
	if _, ok := r.cues[c]; ok {
		return
	}
	for e := r.requests.Front(); e != nil; e = e.Next() {
		if e.Value.(*request).Cue == c {
			return
		}
	}
	glog.V(3).Infof("witness request %s:%d", pre, sn)
	r.requests.PushBack(&request{Cue: c})
}

// Cued tells if the event at (pre, sn) is fully witnessed.
func (r *Receiptor) Cued(pre string, sn uint64) bool {
	r.l.Lock()
	defer r.l.Unlock()

	_, ok := r.cues[Cue{Pre: pre, SN: sn}]
	return ok
}

// Cues returns the current witnessed cues.
func (r *Receiptor) Cues() []Cue {
	r.l.Lock()
	defer r.l.Unlock()

	cues := make([]Cue, 0, len(r.cues))
	for c := range r.cues {
		cues = append(cues, c)
	}
	return cues
}

// Pending returns the count of the queued requests.
func (r *Receiptor) Pending() int {
	r.l.Lock()
	defer r.l.Unlock()
	return r.requests.Len()
}

func (r *Receiptor) pop() *request {
	r.l.Lock()
	defer r.l.Unlock()

	e := r.requests.Front()
	if e == nil {
		return nil
	}
	return r.requests.Remove(e).(*request)
}

func (r *Receiptor) push(req *request) {
	r.l.Lock()
	defer r.l.Unlock()
	r.requests.PushBack(req)
}

func (r *Receiptor) cue(c Cue) {
	r.l.Lock()
	defer r.l.Unlock()
	r.cues[c] = struct{}{}
}

// Work processes the requests queued at the time of the call. Requests which
// aren't fully witnessed yet are put back to the queue. Only the collection
// failures are returned, the missing receipts are not errors.
func (r *Receiptor) Work(ctx context.Context) (err error) {
	var errs []error
	for n := r.Pending(); n > 0; n-- {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		req := r.pop()
		if req == nil {
			break
		}
		witnessed, err := r.collect(ctx, req.Cue)
		switch {
		case err == nil && witnessed:
		case err == nil:
			r.push(req)
		case errors.Is(err, ErrRequest):
			req.tries++
			if req.tries < MaxTries {
				r.push(req)
			} else {
				glog.Errorf("witness request %s:%d dropped: %v",
					req.Pre, req.SN, err)
			}
			errs = append(errs, err)
		default:
			r.push(req)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Receiptor) collect(ctx context.Context, c Cue) (witnessed bool, err error) {
	defer err2.Handle(&err, "collect %s:%d", c.Pre, c.SN)

	ks, ok := r.kevers.Get(c.Pre)
	if !ok {
		return false, fmt.Errorf("%w: %w: %s", ErrRequest, kel.ErrUnknownPrefix, c.Pre)
	}
	e := ks.EventAt(c.SN)
	if e == nil {
		return false, fmt.Errorf("%w: sn %d", ErrRequest, c.SN)
	}
	key := escrow.KeyOf(e)

	if len(ks.Wits) > 0 {
		rcts := try.To1(r.collector.Collect(ctx, e, ks.Wits))
		for _, rct := range rcts {
			if !slices.Contains(ks.Wits, rct.Witness) {
				glog.Warningf("receipt from non witness %s for %s", rct.Witness, e)
				continue
			}
			try.To(r.store.AddWig(key, rct.Witness, rct.Sig))
		}
	}

	wigs := try.To1(r.store.Wigs(key))
	n := Count(wigs, ks.Wits)
	if n == len(ks.Wits) {
		glog.V(1).Infof("witnessed %s:%d", c.Pre, c.SN)
		r.cue(c)
		return true, nil
	}
	glog.V(3).Infof("%s:%d witnessed %d/%d", c.Pre, c.SN, n, len(ks.Wits))
	return false, nil
}

// Count returns the number of receipts which are from the witnesses.
func Count(wigs []escrow.Wig, wits []string) (n int) {
	for _, w := range wigs {
		if slices.Contains(wits, w.Witness) {
			n++
		}
	}
	return n
}
