package cmd

import (
	"os"

	"github.com/findy-network/findy-keri-agent/cmds/escrow"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/spf13/cobra"
)

// escrowCmd represents the escrow command
var escrowCmd = &cobra.Command{
	Use:   "escrow",
	Short: "Parent command for escrow commands",
	Long: `
Parent command for escrow commands
	`,
	Run: func(cmd *cobra.Command, _ []string) {
		SubCmdNeeded(cmd)
	},
}

var escrowListEnvs = map[string]string{
	"queue": "QUEUE",
}

// listEscrowCmd represents the escrow list subcommand
var listEscrowCmd = &cobra.Command{
	Use:   "list",
	Short: "Command for listing the delegation escrows",
	Long: `
Lists the entries waiting in the delegation escrows. Both of the queues are
listed if the queue isn't given.

Example
	fka escrow list \
		--db-file fka.bolt \
		--queue dpwe
	`,
	PreRunE: func(*cobra.Command, []string) (err error) {
		return BindEnvs(escrowListEnvs, "ESCROW")
	},
	RunE: func(cmd *cobra.Command, _ []string) (err error) {
		defer err2.Handle(&err)

		try.To(listCmd.Validate())
		if !rootFlags.dryRun {
			cmd.SilenceUsage = true
			try.To1(listCmd.Exec(os.Stdout))
		}
		return nil
	},
}

var listCmd = escrow.ListCmd{}

func init() {
	flags := listEscrowCmd.Flags()
	storeFlags(flags, &listCmd.StoreCmd, escrowCmd.Name(), escrowListEnvs)
	flags.StringVar(&listCmd.Queue, "queue", "", flagInfo("queue to list, dune or dpwe", escrowCmd.Name(), escrowListEnvs["queue"]))

	rootCmd.AddCommand(escrowCmd)
	escrowCmd.AddCommand(listEscrowCmd)
}
