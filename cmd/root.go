package cmd

import (
	"fmt"
	"os"

	"github.com/parallelchain-io/pchain-client-cli/internal/config"
	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/parallelchain-io/pchain-client-cli/cmd.Version=1.2.3" .
var Version = "1.0.0"

var (
	cfgDir string
	cfg    *config.Config
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "pchain-client",
	Short: "Account keys and transaction submission for ParallelChain",
	Long: `pchain-client — hold account keypairs, compose multi-command transactions
offline, and submit them to a ParallelChain Fullnode RPC endpoint.

Keypairs are encrypted at rest under a password of your choosing. Draft
transactions live in plain JSON files you manage; nothing is sent anywhere
until 'transaction submit'.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "home", "", "config directory (default: $PCHAIN_CLI_HOME or ~/.pchain-client)")

	rootCmd.AddCommand(
		keysCmd,
		transactionCmd,
		parseCmd,
		configCmd,
	)
}
