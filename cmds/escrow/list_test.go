package escrow

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/findy-network/findy-keri-agent/agent/escrow"
	"github.com/findy-network/findy-keri-agent/agent/kel"
	"github.com/findy-network/findy-keri-agent/cmds"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

func TestMain(m *testing.M) {
	try.To(flag.Set("logtostderr", "true"))
	os.Exit(m.Run())
}

func TestListCmd_Validate(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	store := cmds.StoreCmd{DBFile: "escrow.sqlite", DBDriver: cmds.DriverSQLite}
	assert.NoError(ListCmd{StoreCmd: store}.Validate())
	assert.NoError(ListCmd{StoreCmd: store, Queue: "dpwe"}.Validate())
	assert.Error(ListCmd{StoreCmd: store, Queue: "cdel"}.Validate())
}

func TestListCmd_Exec(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	store := cmds.StoreCmd{
		DBFile:   filepath.Join(t.TempDir(), "escrow.sqlite"),
		DBDriver: cmds.DriverSQLite,
	}
	unanchored := try.To1(kel.Incept(kel.WithDelegator("EDelegator"), kel.WithWitnesses("BWit1")))
	witnessed := try.To1(kel.Incept(kel.WithDelegator("EDelegator"), kel.WithWitnesses("BWit2")))
	s := try.To1(store.OpenStore())
	try.To(s.Pin(escrow.Unanchored, escrow.KeyOf(unanchored), unanchored))
	try.To(s.Pin(escrow.PartiallyWitnessed, escrow.KeyOf(witnessed), witnessed))
	try.To(s.SetAES(escrow.KeyOf(witnessed), escrow.Couple{SN: 3, SAID: "EAnchor"}))
	try.To(s.AddWig(escrow.KeyOf(witnessed), "BWit2", "sig"))
	try.To(s.Close())

	var out bytes.Buffer
	r := try.To1(ListCmd{StoreCmd: store}.Exec(&out))
	res := r.(*Result)
	assert.Equal(len(res.Entries), 2)
	assert.Equal(res.Entries[0].Queue, escrow.Unanchored)
	assert.Equal(res.Entries[0].Pre, unanchored.Prefix)
	assert.Equal(res.Entries[0].AES, "")
	assert.Equal(res.Entries[1].SAID, witnessed.SAID)
	assert.Equal(res.Entries[1].Wigs, 1)
	assert.Equal(res.Entries[1].AES, escrow.Couple{SN: 3, SAID: "EAnchor"}.QB64())
	assert.Equal(len(strings.Split(strings.TrimSpace(out.String()), "\n")), 2)

	r = try.To1(ListCmd{StoreCmd: store, Queue: "dune"}.Exec(nil))
	assert.Equal(len(r.(*Result).Entries), 1)
}
