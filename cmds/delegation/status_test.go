package delegation

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/findy-network/findy-keri-agent/agent/delegating"
	"github.com/findy-network/findy-keri-agent/cmds"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

func TestMain(m *testing.M) {
	try.To(flag.Set("logtostderr", "true"))
	os.Exit(m.Run())
}

func TestStatusCmd_Validate(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	store := cmds.StoreCmd{DBFile: "escrow.bolt", DBDriver: cmds.DriverBolt}
	assert.Error(StatusCmd{StoreCmd: store}.Validate())
	assert.Error(StatusCmd{Pre: "EPre"}.Validate())
	assert.NoError(StatusCmd{StoreCmd: store, Pre: "EPre"}.Validate())
}

func TestStatusCmd_Exec(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	store := cmds.StoreCmd{
		DBFile:   filepath.Join(t.TempDir(), "escrow.bolt"),
		DBDriver: cmds.DriverBolt,
	}
	s := try.To1(store.OpenStore())
	try.To(s.PutCompletion("EDelegate", 0, "EDelegateSaid"))
	try.To(s.Close())

	var out bytes.Buffer
	r := try.To1(StatusCmd{StoreCmd: store, Pre: "EDelegate"}.Exec(&out))
	res := r.(*Result)
	assert.That(res.Operation.Done)
	assert.Equal(res.Operation.Name, "delegation.EDelegate")
	assert.That(strings.Contains(out.String(), `"done":true`))

	r = try.To1(StatusCmd{StoreCmd: store, Pre: "EDelegate", SN: 1}.Exec(nil))
	assert.That(!r.(*Result).Operation.Done)

	r = try.To1(StatusCmd{StoreCmd: store, Pre: "EDelegate", SAID: "EDelegateSaid"}.Exec(nil))
	assert.That(r.(*Result).Operation.Done)

	_, err := StatusCmd{StoreCmd: store, Pre: "EDelegate", SAID: "EOther"}.Exec(nil)
	assert.That(errors.Is(err, delegating.ErrValidation))
}
