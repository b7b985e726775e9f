package cmd

import (
	"os"

	"github.com/findy-network/findy-keri-agent/cmds/delegation"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/spf13/cobra"
)

// delegationCmd represents the delegation command
var delegationCmd = &cobra.Command{
	Use:   "delegation",
	Short: "Parent command for delegation commands",
	Long: `
Parent command for delegation commands
	`,
	Run: func(cmd *cobra.Command, _ []string) {
		SubCmdNeeded(cmd)
	},
}

var delegationStatusEnvs = map[string]string{
	"pre":  "PRE",
	"sn":   "SN",
	"said": "SAID",
}

// statusDelegationCmd represents the delegation status subcommand
var statusDelegationCmd = &cobra.Command{
	Use:   "status",
	Short: "Command for checking if the delegated event is completed",
	Long: `
Prints the delegation operation of the event. The operation is done when the
delegator has approved the event and the agent has completed it.

Example
	fka delegation status \
		--db-file fka.bolt \
		--pre EAbc... \
		--sn 1
	`,
	PreRunE: func(*cobra.Command, []string) (err error) {
		return BindEnvs(delegationStatusEnvs, "DELEGATION")
	},
	RunE: func(cmd *cobra.Command, _ []string) (err error) {
		defer err2.Handle(&err)

		try.To(statusCmd.Validate())
		if !rootFlags.dryRun {
			cmd.SilenceUsage = true
			try.To1(statusCmd.Exec(os.Stdout))
		}
		return nil
	},
}

var statusCmd = delegation.StatusCmd{}

func init() {
	flags := statusDelegationCmd.Flags()
	storeFlags(flags, &statusCmd.StoreCmd, delegationCmd.Name(), delegationStatusEnvs)
	flags.StringVar(&statusCmd.Pre, "pre", "", flagInfo("prefix of the delegated identifier", delegationCmd.Name(), delegationStatusEnvs["pre"]))
	flags.Uint64Var(&statusCmd.SN, "sn", 0, flagInfo("sequence number of the delegated event", delegationCmd.Name(), delegationStatusEnvs["sn"]))
	flags.StringVar(&statusCmd.SAID, "said", "", flagInfo("SAID the completed event must have", delegationCmd.Name(), delegationStatusEnvs["said"]))

	rootCmd.AddCommand(delegationCmd)
	delegationCmd.AddCommand(statusDelegationCmd)
}
