package cmds

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/findy-network/findy-keri-agent/agent/escrow"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

func TestStoreCmd_Validate(t *testing.T) {
	tests := []struct {
		name string
		cmd  StoreCmd
		ok   bool
	}{
		{"bolt", StoreCmd{DBFile: "escrow.bolt", DBDriver: DriverBolt}, true},
		{"sqlite", StoreCmd{DBFile: "escrow.sqlite", DBDriver: DriverSQLite}, true},
		{"no file", StoreCmd{DBDriver: DriverBolt}, false},
		{"unknown driver", StoreCmd{DBFile: "escrow.db", DBDriver: "mysql"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.PushTester(t)
			defer assert.PopTester()

			err := tt.cmd.Validate()
			if tt.ok {
				assert.NoError(err)
			} else {
				assert.Error(err)
			}
		})
	}
}

func TestStoreCmd_OpenStore(t *testing.T) {
	for _, driver := range []string{DriverBolt, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			assert.PushTester(t)
			defer assert.PopTester()

			dir := t.TempDir()
			c := StoreCmd{
				DBFile:     filepath.Join(dir, "escrow."+driver),
				DBDriver:   driver,
				KeysetFile: filepath.Join(dir, "keyset.json"),
			}
			s := try.To1(c.OpenStore())
			try.To(s.PutCompletion("EPre", 0, "ESaid"))
			try.To(s.Close())

			// the keyset was created at the first open and is reused
			ks := try.To1(os.ReadFile(c.KeysetFile))
			assert.SNotEmpty(ks)
			s = try.To1(c.OpenStore())
			defer s.Close()
			said := try.To1(s.GetCompletion("EPre", 0))
			assert.Equal(said, "ESaid")
			_, err := s.GetCompletion("EPre", 1)
			assert.That(errors.Is(err, escrow.ErrNotFound))
		})
	}
}
