package cmd

import (
	"os"

	"github.com/findy-network/findy-keri-agent/agent/delegating"
	"github.com/findy-network/findy-keri-agent/agent/utils"
	"github.com/findy-network/findy-keri-agent/cmds/agent"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/spf13/cobra"
)

// AgentCmd represents the agent command
var AgentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Parent command for running the agent",
	Long: `
Parent command for running the agent
	`,
	Run: func(cmd *cobra.Command, _ []string) {
		SubCmdNeeded(cmd)
	},
}

var agentStartEnvs = map[string]string{
	"kel-file":       "KEL_FILE",
	"local":          "LOCAL",
	"proxy":          "PROXY",
	"sweep-interval": "SWEEP_INTERVAL",
	"starve-after":   "STARVE_AFTER",
	"health-port":    "HEALTH_PORT",
}

// startAgentCmd represents the agent start subcommand
var startAgentCmd = &cobra.Command{
	Use:   "start",
	Short: "Command for starting the agent",
	Long: `
Starts the agent which sweeps the delegation escrows of the local identifiers
until it's stopped with a signal.

Example
	fka agent start \
		--db-file fka.bolt \
		--kel-file kel.json \
		--local alice=EAbc... \
		--local proxy=EDef... \
		--proxy EDef...
	`,
	PreRunE: func(*cobra.Command, []string) (err error) {
		return BindEnvs(agentStartEnvs, "AGENT")
	},
	RunE: func(cmd *cobra.Command, _ []string) (err error) {
		defer err2.Handle(&err)

		try.To(startCmd.Validate())
		if !rootFlags.dryRun {
			cmd.SilenceUsage = true
			try.To1(startCmd.Exec(os.Stdout))
		}
		return nil
	},
}

var startCmd = agent.StartCmd{
	VersionInfo: "fka v. " + utils.Version,
}

func init() {
	flags := startAgentCmd.Flags()
	storeFlags(flags, &startCmd.StoreCmd, AgentCmd.Name(), agentStartEnvs)
	flags.StringVar(&startCmd.KELFile, "kel-file", "", flagInfo("key event stream to load at start", AgentCmd.Name(), agentStartEnvs["kel-file"]))
	flags.StringSliceVar(&startCmd.Locals, "local", nil, flagInfo("local identifier as name=prefix, repeatable", AgentCmd.Name(), agentStartEnvs["local"]))
	flags.StringVar(&startCmd.Proxy, "proxy", "", flagInfo("prefix of the default proxy", AgentCmd.Name(), agentStartEnvs["proxy"]))
	flags.DurationVar(&startCmd.SweepInterval, "sweep-interval", utils.DefaultSweepInterval, flagInfo("time between escrow sweeps", AgentCmd.Name(), agentStartEnvs["sweep-interval"]))
	flags.IntVar(&startCmd.StarveAfter, "starve-after", delegating.DefaultStarveAfter, flagInfo("sweeps before a stuck escrow entry is reported, negative disables", AgentCmd.Name(), agentStartEnvs["starve-after"]))
	flags.IntVar(&startCmd.HealthPort, "health-port", 0, flagInfo("gRPC health port, 0 disables", AgentCmd.Name(), agentStartEnvs["health-port"]))

	rootCmd.AddCommand(AgentCmd)
	AgentCmd.AddCommand(startAgentCmd)
}
