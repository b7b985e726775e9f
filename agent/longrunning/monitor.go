package longrunning

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/findy-network/findy-keri-agent/agent/kel"
	"github.com/golang/glog"
)

var (
	ErrNotFound = errors.New("operation not found")
	ErrMetadata = errors.New("invalid operation metadata")
)

// Completer tells if the delegated event is approved by its delegator.
type Completer interface {
	Complete(pre string, sn uint64, said *string) (bool, error)
}

// Witnessed tells if the event is fully witnessed.
type Witnessed interface {
	Cued(pre string, sn uint64) bool
}

// Op is an operation of any type.
type Op = Operation[any, any]

type record struct {
	typ      Type
	oid      string
	metadata any
}

// Monitor keeps the submitted operations and resolves their status when
// they're asked for.
type Monitor struct {
	kevers    *kel.Kevers
	completer Completer
	witnessed Witnessed

	l   sync.RWMutex
	ops map[string]record
}

// NewMonitor returns a new Monitor. Witnessed can be nil, then the witness
// operations are done only for identifiers without witnesses.
func NewMonitor(kevers *kel.Kevers, c Completer, w Witnessed) *Monitor {
	if kevers == nil {
		kevers = kel.NewKevers()
	}
	return &Monitor{
		kevers:    kevers,
		completer: c,
		witnessed: w,
		ops:       make(map[string]record),
	}
}

// Submit adds the operation and returns its name. The metadata must be the
// metadata type of the operation type. An operation with the same name is
// replaced.
func (m *Monitor) Submit(t Type, oid string, metadata any) (name string, err error) {
	if !t.Valid() || oid == "" {
		return "", fmt.Errorf("%w: %s", ErrName, Name(t, oid))
	}
	if !metadataOf(t, metadata) {
		return "", fmt.Errorf("%w: %T for %s", ErrMetadata, metadata, t)
	}
	name = Name(t, oid)

	m.l.Lock()
	defer m.l.Unlock()
	m.ops[name] = record{typ: t, oid: oid, metadata: metadata}
	glog.V(3).Infoln("operation submitted:", name)
	return name, nil
}

func metadataOf(t Type, metadata any) (ok bool) {
	switch t {
	case TypeOOBI:
		_, ok = metadata.(OOBIMetadata)
	case TypeQuery:
		_, ok = metadata.(QueryMetadata)
	case TypeWitness:
		_, ok = metadata.(WitnessMetadata)
	case TypeDelegation:
		_, ok = metadata.(DelegationMetadata)
	case TypeDone:
		_, ok = metadata.(DoneMetadata)
	case TypeGroup:
		_, ok = metadata.(GroupMetadata)
	case TypeDelegator:
		_, ok = metadata.(DelegatorMetadata)
	case TypeSubmit:
		_, ok = metadata.(SubmitMetadata)
	case TypeEndRole:
		_, ok = metadata.(EndRoleMetadata)
	case TypeLocScheme:
		_, ok = metadata.(LocSchemeMetadata)
	case TypeChallenge:
		_, ok = metadata.(ChallengeMetadata)
	case TypeRegistry:
		_, ok = metadata.(RegistryMetadata)
	case TypeCredential:
		_, ok = metadata.(CredentialMetadata)
	case TypeExchange:
		_, ok = metadata.(ExchangeMetadata)
	}
	return ok
}

// Get returns the current status of the operation.
func (m *Monitor) Get(name string) (*Op, error) {
	m.l.RLock()
	r, ok := m.ops[name]
	m.l.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return m.status(name, r), nil
}

// List returns the operations of the type sorted by name. Empty type lists
// all of them.
func (m *Monitor) List(t Type) []*Op {
	m.l.RLock()
	names := make([]string, 0, len(m.ops))
	recs := make(map[string]record, len(m.ops))
	for name, r := range m.ops {
		if t == "" || r.typ == t {
			names = append(names, name)
			recs[name] = r
		}
	}
	m.l.RUnlock()

	sort.Strings(names)
	ops := make([]*Op, 0, len(names))
	for _, name := range names {
		ops = append(ops, m.status(name, recs[name]))
	}
	return ops
}

// Rem removes the operation.
func (m *Monitor) Rem(name string) bool {
	m.l.Lock()
	defer m.l.Unlock()

	_, ok := m.ops[name]
	delete(m.ops, name)
	return ok
}

func (m *Monitor) status(name string, r record) *Op {
	op := &Op{Name: name, Metadata: r.metadata}

	switch md := r.metadata.(type) {
	case DelegationMetadata:
		if m.completer == nil {
			break
		}
		done, err := m.completer.Complete(md.Pre, md.SN, nil)
		if err != nil {
			op.Error = &Status{Code: http.StatusInternalServerError, Message: err.Error()}
			break
		}
		op.Done = done
		if done {
			op.Response = m.response(md.Pre, md.SN)
		}

	case WitnessMetadata:
		ks, ok := m.kevers.Get(md.Pre)
		if !ok || ks.EventAt(md.SN) == nil {
			break
		}
		if len(ks.Wits) == 0 || (m.witnessed != nil && m.witnessed.Cued(md.Pre, md.SN)) {
			op.Done = true
			op.Response = m.response(md.Pre, md.SN)
		}

	case QueryMetadata:
		op.Done, op.Response = m.keyState(md.Pre, md.SN)

	case SubmitMetadata:
		op.Done, op.Response = m.keyState(md.Pre, md.SN)

	case DoneMetadata:
		op.Done = true
		op.Response = md.Response
	}
	return op
}

// response returns the event at sn as a field map, nil if we don't have it.
func (m *Monitor) response(pre string, sn uint64) any {
	ks, ok := m.kevers.Get(pre)
	if !ok {
		return nil
	}
	e := ks.EventAt(sn)
	if e == nil {
		return nil
	}
	var ked KED
	if err := kel.Unmarshal(e.Raw, &ked, e.Kind); err != nil {
		glog.Errorf("operation response %s: %v", e, err)
		return nil
	}
	return ked
}

// keyState returns the key state if the identifier has reached sn.
func (m *Monitor) keyState(pre string, sn uint64) (done bool, state any) {
	ks, ok := m.kevers.Get(pre)
	if !ok || ks.SN() < sn || len(ks.Events) == 0 {
		return false, nil
	}
	last := ks.Last()
	return true, KeyStateRecord{
		"i":  ks.Prefix,
		"s":  last.SNHex,
		"d":  last.SAID,
		"et": last.Ilk,
		"di": ks.Delegator,
		"b":  ks.Wits,
	}
}
