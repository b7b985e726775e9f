package cmd

import (
	"flag"
	"os"
	"path/filepath"
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

func execute(args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestCommands(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		for _, sub := range c.Commands() {
			names[c.Name()+" "+sub.Name()] = true
		}
	}
	assert.That(names["agent start"])
	assert.That(names["delegation status"])
	assert.That(names["escrow list"])
}

func TestGetEnvName(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	assert.Equal(getEnvName("", "logging"), "FKA_LOGGING")
	assert.Equal(getEnvName("agent", "DB_FILE"), "FKA_AGENT_DB_FILE")
	assert.Equal(flagInfo("escrow database file", "escrow", "DB_FILE"),
		"escrow database file, FKA_ESCROW_DB_FILE")
}

func TestEscrowList(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	dbFile := filepath.Join(t.TempDir(), "escrow.bolt")
	dip := try.To1(kel.Incept(kel.WithDelegator("EDelegator"), kel.WithWitnesses("BWitCmd")))
	s := try.To1(cmds.StoreCmd{DBFile: dbFile, DBDriver: cmds.DriverBolt}.OpenStore())
	try.To(s.Pin(escrow.Unanchored, escrow.KeyOf(dip), dip))
	try.To(s.Close())

	assert.NoError(execute("escrow", "list", "--db-file", dbFile))
	assert.Equal(listCmd.DBFile, dbFile)
	assert.Equal(listCmd.DBDriver, cmds.DriverBolt)

	assert.NoError(execute("delegation", "status", "--db-file", dbFile,
		"--pre", dip.Prefix, "--sn", "0"))
	assert.Equal(statusCmd.Pre, dip.Prefix)

	assert.Error(execute("escrow", "list", "--db-file", dbFile, "--queue", "cdel"))
}

func TestAgentStart_dryRun(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	dbFile := filepath.Join(t.TempDir(), "agent.bolt")
	assert.NoError(execute("agent", "start", "--dry-run", "--db-file", dbFile,
		"--local", "alice=EAlice", "--proxy", "EAlice", "--sweep-interval", "100ms"))
	assert.Equal(len(startCmd.Locals), 1)
	assert.Equal(startCmd.Proxy, "EAlice")
	_, err := os.Stat(dbFile)
	assert.That(os.IsNotExist(err))

	assert.Error(execute("agent", "start", "--dry-run", "--db-file", dbFile,
		"--proxy", "EBob", "--sweep-interval", "100ms"))
}
