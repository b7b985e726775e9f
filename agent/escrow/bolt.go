package escrow

import (
	"bytes"
	"fmt"
	"time"

	"github.com/findy-network/findy-common-go/dto"
	"github.com/findy-network/findy-keri-agent/agent/kel"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	bolt "go.etcd.io/bbolt"
)

const (
	aesBucket  = "aess"
	wigsBucket = "wigs"
	cdelBucket = "cdel"
)

var buckets = []string{
	string(Unanchored),
	string(PartiallyWitnessed),
	aesBucket,
	wigsBucket,
	cdelBucket,
}

// BoltStore is the bbolt implementation of the Store. Bolt serializes the
// write transactions which gives us the per key atomicity.
type BoltStore struct {
	sealer
	db *bolt.DB
}

const lockTimeout = 2 * time.Second

// OpenBolt opens or creates the escrow database file.
func OpenBolt(filename string, opts ...Option) (s *BoltStore, err error) {
	defer err2.Handle(&err, "open escrow db %s", filename)

	s = new(BoltStore)
	for _, o := range opts {
		o(&s.sealer)
	}
	// the agent holds the file lock while running
	s.db = try.To1(bolt.Open(filename, 0600, &bolt.Options{Timeout: lockTimeout}))

	err = s.db.Update(func(tx *bolt.Tx) (err error) {
		defer err2.Handle(&err, "create buckets")

		for _, b := range buckets {
			try.To1(tx.CreateBucketIfNotExists([]byte(b)))
		}
		return nil
	})
	if err != nil {
		_ = s.db.Close()
		return nil, err
	}
	glog.V(1).Infoln("escrow db open:", filename)
	return s, nil
}

func (s *BoltStore) Close() error {
	glog.V(1).Infoln("escrow db close:", s.db.Path())
	return s.db.Close()
}

func (s *BoltStore) put(bucket, key string, value []byte) (err error) {
	defer err2.Handle(&err, "put %s/%s", bucket, key)

	value = try.To1(s.seal(bucket, key, value))
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), value)
	})
}

// get returns nil value if the key doesn't exist.
func (s *BoltStore) get(bucket, key string) (value []byte, err error) {
	defer err2.Handle(&err, "get %s/%s", bucket, key)

	try.To(s.db.View(func(tx *bolt.Tx) error {
		d := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if d != nil {
			value = append(d[:0:0], d...)
		}
		return nil
	}))
	if value == nil {
		return nil, nil
	}
	return s.open(bucket, key, value)
}

func (s *BoltStore) Pin(q Queue, key Key, e *kel.Event) (err error) {
	defer err2.Handle(&err, "pin %s", q)

	try.To(checkQueue(q))
	return s.put(string(q), key.String(), dto.ToGOB(&record{Raw: e.Raw}))
}

func (s *BoltStore) Rem(q Queue, key Key) (err error) {
	defer err2.Handle(&err, "rem %s", q)

	try.To(checkQueue(q))
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(q)).Delete([]byte(key.String()))
	})
}

func (s *BoltStore) Has(q Queue, key Key) (ok bool, err error) {
	defer err2.Handle(&err, "has %s", q)

	try.To(checkQueue(q))
	try.To(s.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket([]byte(q)).Get([]byte(key.String())) != nil
		return nil
	}))
	return ok, nil
}

func (s *BoltStore) Items(q Queue) (items []Item, err error) {
	defer err2.Handle(&err, "items %s", q)

	try.To(checkQueue(q))
	type kv struct{ k, v []byte }
	var rows []kv
	try.To(s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(q)).ForEach(func(k, v []byte) error {
			rows = append(rows, kv{
				k: append(k[:0:0], k...),
				v: append(v[:0:0], v...),
			})
			return nil
		})
	}))

	items = make([]Item, 0, len(rows))
	for _, row := range rows {
		item, err := s.item(q, row.k, row.v)
		if err != nil {
			glog.Errorf("skipping %s row %s: %v", q, row.k, err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *BoltStore) item(q Queue, k, v []byte) (item Item, err error) {
	defer err2.Handle(&err)

	key := try.To1(ParseKey(string(k)))
	v = try.To1(s.open(string(q), key.String(), v))
	var r record
	dto.FromGOB(v, &r)
	e := try.To1(r.event())
	return Item{Key: key, Event: e}, nil
}

func (s *BoltStore) SetAES(key Key, c Couple) error {
	return s.put(aesBucket, key.String(), []byte(c.QB64()))
}

func (s *BoltStore) GetAES(key Key) (c Couple, err error) {
	defer err2.Handle(&err, "get aes")

	v := try.To1(s.get(aesBucket, key.String()))
	if v == nil {
		return c, fmt.Errorf("%w: aes %s", ErrNotFound, key)
	}
	return ParseCouple(string(v))
}

func (s *BoltStore) AddWig(key Key, wit, sig string) error {
	return s.put(wigsBucket, wigKey(key, wit), []byte(sig))
}

func (s *BoltStore) Wigs(key Key) (wigs []Wig, err error) {
	defer err2.Handle(&err, "wigs %s", key)

	prefix := []byte(key.String() + sep)
	type kv struct {
		wit string
		v   []byte
	}
	var rows []kv
	try.To(s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(wigsBucket)).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			rows = append(rows, kv{
				wit: string(k[len(prefix):]),
				v:   append(v[:0:0], v...),
			})
		}
		return nil
	}))
	for _, row := range rows {
		sig := try.To1(s.open(wigsBucket, wigKey(key, row.wit), row.v))
		wigs = append(wigs, Wig{Witness: row.wit, Sig: string(sig)})
	}
	return wigs, nil
}

func (s *BoltStore) PutCompletion(pre string, sn uint64, said string) (err error) {
	defer err2.Handle(&err, "put completion %s:%d", pre, sn)

	key := completionKey(pre, sn)
	sealed := try.To1(s.seal(cdelBucket, key, []byte(said)))
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cdelBucket))
		if d := b.Get([]byte(key)); d != nil {
			stored, err := s.open(cdelBucket, key, d)
			if err != nil {
				return err
			}
			if string(stored) != said {
				return fmt.Errorf("%w: have %s", ErrMismatch, stored)
			}
			return nil
		}
		return b.Put([]byte(key), sealed)
	})
}

func (s *BoltStore) GetCompletion(pre string, sn uint64) (said string, err error) {
	defer err2.Handle(&err, "get completion")

	v := try.To1(s.get(cdelBucket, completionKey(pre, sn)))
	if v == nil {
		return "", fmt.Errorf("%w: completion %s:%d", ErrNotFound, pre, sn)
	}
	return string(v), nil
}
