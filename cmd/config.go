package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/parallelchain-io/pchain-client-cli/internal/rpc"
	"github.com/parallelchain-io/pchain-client-cli/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI settings",
}

var configSetupURL string

var configSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Set the Fullnode RPC endpoint URL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.SetURL(configSetupURL)
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success("RPC endpoint set to " + cfg.URL))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings and endpoint reachability",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("  %s %s\n", ui.Meta("Config dir:"), ui.Val(cfg.Dir()))

		if cfg.URL == "" {
			fmt.Printf("  %s %s\n", ui.Meta("RPC endpoint:"), ui.Warn("not configured"))
			fmt.Println(ui.Hint("Set one with: pchain-client config setup --url <URL>"))
			return nil
		}
		fmt.Printf("  %s %s\n", ui.Meta("RPC endpoint:"), ui.Val(cfg.URL))

		client, err := rpc.NewClient(cfg.URL)
		if err != nil {
			return err
		}
		latency, err := client.Ping(context.Background())
		if err != nil {
			fmt.Printf("  %s %s\n", ui.Meta("Status:"), ui.Err("unreachable: "+err.Error()))
			return nil
		}
		fmt.Printf("  %s %s\n", ui.Meta("Status:"), ui.Success(fmt.Sprintf("reachable (%s)", latency.Round(time.Millisecond))))
		return nil
	},
}

func init() {
	configSetupCmd.Flags().StringVar(&configSetupURL, "url", "", "Fullnode RPC endpoint URL")
	configSetupCmd.MarkFlagRequired("url") //nolint:errcheck

	configCmd.AddCommand(configSetupCmd, configShowCmd)
}
