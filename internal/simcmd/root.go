// Package simcmd implements the atomics-sim command line.
package simcmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oshokin/xk6-atomics/internal/simconfig"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "atomics-sim",
	Short: "Exercise the atomics store with concurrent pipeline workers",
	Long: `atomics-sim runs workers that rendezvous on shared atomic values the way
parallel k6 scenarios do: every row is a countdown that all workers decrement
once, wait on until it reaches zero, and then close with a one-shot gate.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./atomics-sim.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	simconfig.SetDefaults(viper.GetViper())

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("atomics-sim")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix(simconfig.EnvPrefix)
	// ATOMICS_SIM_LOGGING_LEVEL for logging.level
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is not an error.
	_ = viper.ReadInConfig()
}
