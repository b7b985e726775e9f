package escrow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/findy-network/findy-keri-agent/agent/kel"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"

	_ "modernc.org/sqlite"
)

// SQLStore is the SQLite implementation of the Store. It's meant for the
// deployments which already keep their agent state in SQL databases.
type SQLStore struct {
	sealer
	db *sql.DB
}

// OpenSQL opens or creates the SQLite escrow database.
func OpenSQL(filename string, opts ...Option) (s *SQLStore, err error) {
	defer err2.Handle(&err, "open escrow sql %s", filename)

	db := try.To1(sql.Open("sqlite", filename))
	// one writer at the time, sqlite would answer SQLITE_BUSY otherwise
	db.SetMaxOpenConns(1)
	s, err = NewSQLStore(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	glog.V(1).Infoln("escrow sql open:", filename)
	return s, nil
}

// NewSQLStore builds the store over the open database and creates the tables
// when needed.
func NewSQLStore(db *sql.DB, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{db: db}
	for _, o := range opts {
		o(&s.sealer)
	}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

var schema = []string{`
	CREATE TABLE IF NOT EXISTS escrows (
		queue TEXT NOT NULL,
		pre TEXT NOT NULL,
		said TEXT NOT NULL,
		raw BLOB NOT NULL,
		PRIMARY KEY (queue, pre, said)
	);`, `
	CREATE TABLE IF NOT EXISTS aess (
		dg_key TEXT PRIMARY KEY,
		couple BLOB NOT NULL
	);`, `
	CREATE TABLE IF NOT EXISTS wigs (
		dg_key TEXT NOT NULL,
		witness TEXT NOT NULL,
		sig BLOB NOT NULL,
		PRIMARY KEY (dg_key, witness)
	);`, `
	CREATE TABLE IF NOT EXISTS cdel (
		sn_key TEXT PRIMARY KEY,
		said BLOB NOT NULL
	);`,
}

func (s *SQLStore) migrate() error {
	for _, query := range schema {
		if _, err := s.db.ExecContext(context.Background(), query); err != nil {
			return fmt.Errorf("migrate escrow tables: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Pin(q Queue, key Key, e *kel.Event) (err error) {
	defer err2.Handle(&err, "pin %s", q)

	try.To(checkQueue(q))
	raw := try.To1(s.seal(string(q), key.String(), e.Raw))
	_, err = s.db.ExecContext(context.Background(), `
	INSERT INTO escrows (queue, pre, said, raw) VALUES (?, ?, ?, ?)
	ON CONFLICT (queue, pre, said) DO UPDATE SET raw = excluded.raw`,
		string(q), key.Pre, key.SAID, raw)
	return err
}

func (s *SQLStore) Rem(q Queue, key Key) (err error) {
	defer err2.Handle(&err, "rem %s", q)

	try.To(checkQueue(q))
	_, err = s.db.ExecContext(context.Background(),
		`DELETE FROM escrows WHERE queue = ? AND pre = ? AND said = ?`,
		string(q), key.Pre, key.SAID)
	return err
}

func (s *SQLStore) Has(q Queue, key Key) (ok bool, err error) {
	defer err2.Handle(&err, "has %s", q)

	try.To(checkQueue(q))
	var n int
	try.To(s.db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM escrows WHERE queue = ? AND pre = ? AND said = ?`,
		string(q), key.Pre, key.SAID).Scan(&n))
	return n > 0, nil
}

func (s *SQLStore) Items(q Queue) (items []Item, err error) {
	defer err2.Handle(&err, "items %s", q)

	try.To(checkQueue(q))
	rows := try.To1(s.db.QueryContext(context.Background(),
		`SELECT pre, said, raw FROM escrows WHERE queue = ? ORDER BY pre, said`,
		string(q)))
	defer func() { _ = rows.Close() }()

	items = make([]Item, 0)
	for rows.Next() {
		var (
			key Key
			raw []byte
		)
		try.To(rows.Scan(&key.Pre, &key.SAID, &raw))
		e, err := s.event(q, key, raw)
		if err != nil {
			glog.Errorf("skipping %s row %s: %v", q, key, err)
			continue
		}
		items = append(items, Item{Key: key, Event: e})
	}
	try.To(rows.Err())
	return items, nil
}

func (s *SQLStore) event(q Queue, key Key, raw []byte) (e *kel.Event, err error) {
	defer err2.Handle(&err)

	raw = try.To1(s.open(string(q), key.String(), raw))
	return kel.Parse(raw)
}

func (s *SQLStore) SetAES(key Key, c Couple) (err error) {
	defer err2.Handle(&err, "set aes")

	v := try.To1(s.seal(aesBucket, key.String(), []byte(c.QB64())))
	_, err = s.db.ExecContext(context.Background(), `
	INSERT INTO aess (dg_key, couple) VALUES (?, ?)
	ON CONFLICT (dg_key) DO UPDATE SET couple = excluded.couple`,
		key.String(), v)
	return err
}

func (s *SQLStore) GetAES(key Key) (c Couple, err error) {
	defer err2.Handle(&err, "get aes")

	var v []byte
	err = s.db.QueryRowContext(context.Background(),
		`SELECT couple FROM aess WHERE dg_key = ?`, key.String()).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("%w: aes %s", ErrNotFound, key)
	}
	try.To(err)
	v = try.To1(s.open(aesBucket, key.String(), v))
	return ParseCouple(string(v))
}

func (s *SQLStore) AddWig(key Key, wit, sig string) (err error) {
	defer err2.Handle(&err, "add wig")

	v := try.To1(s.seal(wigsBucket, wigKey(key, wit), []byte(sig)))
	_, err = s.db.ExecContext(context.Background(), `
	INSERT INTO wigs (dg_key, witness, sig) VALUES (?, ?, ?)
	ON CONFLICT (dg_key, witness) DO UPDATE SET sig = excluded.sig`,
		key.String(), wit, v)
	return err
}

func (s *SQLStore) Wigs(key Key) (wigs []Wig, err error) {
	defer err2.Handle(&err, "wigs %s", key)

	rows := try.To1(s.db.QueryContext(context.Background(),
		`SELECT witness, sig FROM wigs WHERE dg_key = ? ORDER BY witness`,
		key.String()))
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			wit string
			v   []byte
		)
		try.To(rows.Scan(&wit, &v))
		sig := try.To1(s.open(wigsBucket, wigKey(key, wit), v))
		wigs = append(wigs, Wig{Witness: wit, Sig: string(sig)})
	}
	try.To(rows.Err())
	return wigs, nil
}

func (s *SQLStore) PutCompletion(pre string, sn uint64, said string) (err error) {
	defer err2.Handle(&err, "put completion %s:%d", pre, sn)

	key := completionKey(pre, sn)
	sealed := try.To1(s.seal(cdelBucket, key, []byte(said)))

	tx := try.To1(s.db.BeginTx(context.Background(), nil))
	// no-op after the commit
	defer func() { _ = tx.Rollback() }()

	var v []byte
	err = tx.QueryRow(`SELECT said FROM cdel WHERE sn_key = ?`, key).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		try.To1(tx.Exec(`INSERT INTO cdel (sn_key, said) VALUES (?, ?)`, key, sealed))
	case err != nil:
		return err
	default:
		stored := try.To1(s.open(cdelBucket, key, v))
		if string(stored) != said {
			return fmt.Errorf("%w: have %s", ErrMismatch, stored)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetCompletion(pre string, sn uint64) (said string, err error) {
	defer err2.Handle(&err, "get completion")

	key := completionKey(pre, sn)
	var v []byte
	err = s.db.QueryRowContext(context.Background(),
		`SELECT said FROM cdel WHERE sn_key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: completion %s:%d", ErrNotFound, pre, sn)
	}
	try.To(err)
	v = try.To1(s.open(cdelBucket, key, v))
	return string(v), nil
}
