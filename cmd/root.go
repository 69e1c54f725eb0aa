package cmd

import (
	"fmt"
	"os"

	"github.com/rdjoudi/mybak/internal/config"
	"github.com/rdjoudi/mybak/internal/operations"
	"github.com/spf13/cobra"
)

// ConfigFile is the path to the YAML configuration.
var ConfigFile string

// rootCmd is the single mybak command. All behavior is driven by the
// configuration file; the command itself only knows --config and --help.
var rootCmd = &cobra.Command{
	Use:   "mybak",
	Short: "Scheduled MySQL backup runner built around mydumper",
	Long: `mybak performs one full backup cycle per invocation: it verifies the
environment, runs pre-hooks, invokes mydumper into a dated snapshot
directory, republishes the "latest" pointer, runs post-hooks, enforces
the retention policy and reports the outcome. Scheduling is left to an
external trigger such as cron.`,
	Run: func(cmd *cobra.Command, args []string) {
		var cfg config.Config
		if err := cfg.Load(ConfigFile); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
		op, err := operations.NewOperator(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
		os.Exit(op.Run(cmd.Context()))
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().
		StringVarP(&ConfigFile, "config", "c", "/etc/mybak/config.yaml", "path to YAML config file")
}
