package cmd

import (
	"github.com/findy-network/findy-keri-agent/cmds"
	"github.com/spf13/pflag"
)

var storeEnvs = map[string]string{
	"db-file":     "DB_FILE",
	"db-driver":   "DB_DRIVER",
	"keyset-file": "KEYSET_FILE",
}

// storeFlags adds the escrow store flags of the command and their env names
// to envs.
func storeFlags(flags *pflag.FlagSet, c *cmds.StoreCmd, cmdName string, envs map[string]string) {
	for k, v := range storeEnvs {
		envs[k] = v
	}
	flags.StringVar(&c.DBFile, "db-file", "fka.bolt", flagInfo("escrow database file", cmdName, envs["db-file"]))
	flags.StringVar(&c.DBDriver, "db-driver", cmds.DriverBolt, flagInfo("escrow database driver, bolt or sqlite", cmdName, envs["db-driver"]))
	flags.StringVar(&c.KeysetFile, "keyset-file", "", flagInfo("tink keyset file to seal escrow values", cmdName, envs["keyset-file"]))
}
