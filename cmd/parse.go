package cmd

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/parallelchain-io/pchain-client-cli/internal/encoding"
	"github.com/parallelchain-io/pchain-client-cli/internal/tx"
	"github.com/parallelchain-io/pchain-client-cli/internal/ui"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Offline conversions: addresses, encodings, call results",
}

var parseContractAddressCmd = &cobra.Command{
	Use:   "contract-address",
	Short: "Derive the address of a contract from its deployment",
	Long: `Derive the address a contract was (or will be) deployed at, given the
deployer's account address and the nonce of the deploying transaction. Pure
computation; nothing is contacted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deployer, err := addressFlag(cmd, "address")
		if err != nil {
			return err
		}
		nonce, _ := cmd.Flags().GetUint64("nonce")
		fmt.Println(ui.Addr(tx.ContractAddress(deployer, nonce).String()))
		return nil
	},
}

var parseBase64Cmd = &cobra.Command{
	Use:   "base64",
	Short: "Convert between hex and the protocol's Base64URL encoding",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if enc, _ := cmd.Flags().GetString("encode"); enc != "" {
			raw, err := hex.DecodeString(enc)
			if err != nil {
				return fmt.Errorf("--encode expects hex: %w", err)
			}
			fmt.Println(ui.Val(base64.RawURLEncoding.EncodeToString(raw)))
			return nil
		}
		dec, _ := cmd.Flags().GetString("decode")
		raw, err := base64.RawURLEncoding.DecodeString(dec)
		if err != nil {
			return fmt.Errorf("--decode expects Base64URL: %w", err)
		}
		fmt.Println(ui.Val(hex.EncodeToString(raw)))
		return nil
	},
}

var parseCallResultCmd = &cobra.Command{
	Use:   "call-result",
	Short: "Decode a contract call result against an expected type",
	Long: `Decode the Base64URL-encoded return value of a contract call, given the
type it was declared with (e.g. u64, String, Vec<u8>, [u8;32]). Prints the
value as JSON.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		value, _ := cmd.Flags().GetString("value")
		dataType, _ := cmd.Flags().GetString("data-type")

		payload, err := base64.RawURLEncoding.DecodeString(value)
		if err != nil {
			return fmt.Errorf("--value expects Base64URL: %w", err)
		}
		decoded, err := encoding.DecodePayload(payload, []string{dataType})
		if err != nil {
			return err
		}
		fmt.Println(ui.Val(decoded[0].Value))
		return nil
	},
}

func init() {
	parseContractAddressCmd.Flags().String("address", "", "deployer account address (Base64URL)")
	parseContractAddressCmd.Flags().Uint64("nonce", 0, "nonce of the deploying transaction")
	parseContractAddressCmd.MarkFlagRequired("address") //nolint:errcheck
	parseContractAddressCmd.MarkFlagRequired("nonce")   //nolint:errcheck

	parseBase64Cmd.Flags().String("encode", "", "hex string to encode as Base64URL")
	parseBase64Cmd.Flags().String("decode", "", "Base64URL string to decode to hex")
	parseBase64Cmd.MarkFlagsMutuallyExclusive("encode", "decode")
	parseBase64Cmd.MarkFlagsOneRequired("encode", "decode")

	parseCallResultCmd.Flags().String("value", "", "call result (Base64URL)")
	parseCallResultCmd.Flags().String("data-type", "", "declared return type")
	parseCallResultCmd.MarkFlagRequired("value")     //nolint:errcheck
	parseCallResultCmd.MarkFlagRequired("data-type") //nolint:errcheck

	parseCmd.AddCommand(parseContractAddressCmd, parseBase64Cmd, parseCallResultCmd)
}
