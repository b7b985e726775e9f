package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/findy-network/findy-keri-agent/agent/utils"
	"github.com/findy-network/findy-keri-agent/cmds"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix starts all of the env names, e.g. FKA_AGENT_DB_FILE.
const envPrefix = "FKA"

var rootCmd = &cobra.Command{
	Version: utils.Version,
	Use:     "fka",
	Short:   "Findy KERI agent",
	Long: `
Findy KERI agent runs the delegation escrows of the local identifiers and
offers commands to inspect them.
	`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		cmds.ParseLoggingArgs(rootFlags.logging)
		for c := cmd; c != nil; c = c.Parent() {
			if err := syncFlags(c); err != nil {
				glog.Errorln("flags of", c.Name(), err)
			}
		}
	},
}

// Execute runs the command given in the program arguments and exits with 1
// if it fails. Cobra has printed the error already.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// DryRun tells if the commands should only validate their arguments.
func DryRun() bool {
	return rootFlags.dryRun
}

type RootFlags struct {
	cfgFile string
	dryRun  bool
	logging string
}

var rootFlags = RootFlags{}

var rootEnvs = map[string]string{
	"config":  "CONFIG",
	"logging": "LOGGING",
	"dry-run": "DRY_RUN",
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootFlags.cfgFile, "config", "", flagInfo("configuration file", "", rootEnvs["config"]))
	flags.StringVar(&rootFlags.logging, "logging", "-logtostderr=true -v=2", flagInfo("glog startup arguments", "", rootEnvs["logging"]))
	flags.BoolVarP(&rootFlags.dryRun, "dry-run", "n", false, flagInfo("validate arguments only", "", rootEnvs["dry-run"]))

	for _, name := range []string{"logging", "dry-run"} {
		try.To(viper.BindPFlag(name, flags.Lookup(name)))
	}
	try.To(BindEnvs(rootEnvs, ""))
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	cfgFile := rootFlags.cfgFile
	if cfgFile == "" {
		cfgFile = os.Getenv(getEnvName("", rootEnvs["config"]))
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			glog.Warningln("config file:", err)
		} else {
			glog.V(1).Infoln("using config file:", viper.ConfigFileUsed())
		}
	}

	rootFlags.logging = viper.GetString("logging")
	rootFlags.dryRun = viper.GetBool("dry-run")
}

// BindEnvs binds the flags of envMap to their env names. The cmdName is the
// middle part of the env name and it's empty for the root flags.
func BindEnvs(envMap map[string]string, cmdName string) (err error) {
	defer err2.Handle(&err, "bind envs %s", cmdName)

	for flagKey, envName := range envMap {
		try.To(viper.BindEnv(flagKey, getEnvName(cmdName, envName)))
	}
	return nil
}

func flagInfo(info, cmdName, envName string) string {
	return fmt.Sprintf("%s, %s", info, getEnvName(cmdName, envName))
}

func getEnvName(cmdName, envName string) string {
	parts := []string{envPrefix, strings.ToUpper(envName)}
	if cmdName != "" {
		parts = []string{envPrefix, strings.ToUpper(cmdName), envName}
	}
	return strings.Join(parts, "_")
}

// syncFlags sets the local flags of the command from viper, i.e. from the
// env or the config file when the flag isn't given. Slice flags are left as
// they are because setting them appends.
func syncFlags(cmd *cobra.Command) (err error) {
	defer err2.Handle(&err)

	flags := cmd.LocalFlags()
	try.To(viper.BindPFlags(flags))
	if cmd.PreRunE != nil {
		try.To(cmd.PreRunE(cmd, nil))
	}
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || strings.HasSuffix(f.Value.Type(), "Slice") {
			return
		}
		if v := viper.GetString(f.Name); v != "" {
			err = flags.Set(f.Name, v)
		}
	})
	return err
}

// SubCmdNeeded prints the help and exits because the cmd is abstract.
func SubCmdNeeded(cmd *cobra.Command) {
	fmt.Println("Subcommand needed!")
	_ = cmd.Help()
	os.Exit(1)
}
