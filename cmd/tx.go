package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/parallelchain-io/pchain-client-cli/internal/encoding"
	"github.com/parallelchain-io/pchain-client-cli/internal/rpc"
	"github.com/parallelchain-io/pchain-client-cli/internal/tx"
	"github.com/parallelchain-io/pchain-client-cli/internal/ui"
	"github.com/spf13/cobra"
)

const defaultDraftFile = "tx.json"

var transactionCmd = &cobra.Command{
	Use:     "transaction",
	Aliases: []string{"tx"},
	Short:   "Compose, sign and submit transactions",
}

// ---------------------------------------------------------------------------
// create / append
//
// Both take one protocol command as a subcommand; create starts a new draft
// around it, append pushes it onto an existing draft's tail.
// ---------------------------------------------------------------------------

var (
	txCreateDestination string
	txCreateOverwrite   bool
	txAppendFile        string
)

var txCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a draft transaction with its first command",
	Long: `Create a draft transaction file from the account parameters and one
protocol command. Add further commands with 'transaction append', then
finalize with 'transaction submit'. The draft is plain JSON and safe to edit
by hand between invocations.`,
}

var txAppendCmd = &cobra.Command{
	Use:   "append",
	Short: "Append one command to a draft transaction",
	Long: `Append a single command to the tail of the draft's command sequence.
Commands execute in append order, so a deploy must precede a call that
targets the deployed contract within the same transaction.`,
}

func createDraft(cmd *cobra.Command, c tx.Command) error {
	nonce, _ := cmd.Flags().GetUint64("nonce")
	gasLimit, _ := cmd.Flags().GetUint64("gas-limit")
	maxBaseFee, _ := cmd.Flags().GetUint64("max-base-fee-per-gas")
	priorityFee, _ := cmd.Flags().GetUint64("priority-fee-per-gas")

	t := &tx.Transaction{
		Nonce:             nonce,
		GasLimit:          gasLimit,
		MaxBaseFeePerGas:  maxBaseFee,
		PriorityFeePerGas: priorityFee,
		Commands:          []tx.Command{c},
	}
	if err := tx.CreateDraft(txCreateDestination, t, txCreateOverwrite); err != nil {
		return err
	}
	name, err := c.Name()
	if err != nil {
		return err
	}
	fmt.Println(ui.Success(fmt.Sprintf("Draft transaction created at %s with %s", txCreateDestination, name)))
	fmt.Println(ui.Hint("Add commands with: pchain-client transaction append <command> --file " + txCreateDestination))
	return nil
}

func appendToDraft(_ *cobra.Command, c tx.Command) error {
	t, err := tx.AppendCommand(txAppendFile, c)
	if err != nil {
		return err
	}
	name, err := c.Name()
	if err != nil {
		return err
	}
	fmt.Println(ui.Success(fmt.Sprintf("Appended %s to %s", name, txAppendFile)))
	fmt.Println(ui.Meta(fmt.Sprintf("%d command(s) in draft", len(t.Commands))))
	return nil
}

func addressFlag(cmd *cobra.Command, name string) (tx.Address, error) {
	s, _ := cmd.Flags().GetString(name)
	a, err := tx.AddressFromText(s)
	if err != nil {
		return a, fmt.Errorf("--%s: %w", name, err)
	}
	return a, nil
}

// commandSubcommands builds one cobra subcommand per protocol command, all
// routed to sink. create and append each get their own instances so flag
// state is never shared between the two paths.
func commandSubcommands(sink func(*cobra.Command, tx.Command) error) []*cobra.Command {
	variant := func(use, short string, flags func(*cobra.Command), build func(*cobra.Command) (tx.Command, error)) *cobra.Command {
		cmd := &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := build(cmd)
				if err != nil {
					return err
				}
				return sink(cmd, c)
			},
		}
		if flags != nil {
			flags(cmd)
		}
		return cmd
	}

	operatorMaxAmount := func(use, short string, wrap func(tx.Address, uint64) tx.Command) *cobra.Command {
		return variant(use, short,
			func(cmd *cobra.Command) {
				cmd.Flags().String("operator", "", "pool operator address (Base64URL)")
				cmd.Flags().Uint64("max-amount", 0, "upper bound on the amount to move")
				cmd.MarkFlagRequired("operator")   //nolint:errcheck
				cmd.MarkFlagRequired("max-amount") //nolint:errcheck
			},
			func(cmd *cobra.Command) (tx.Command, error) {
				operator, err := addressFlag(cmd, "operator")
				if err != nil {
					return tx.Command{}, err
				}
				maxAmount, _ := cmd.Flags().GetUint64("max-amount")
				return wrap(operator, maxAmount), nil
			})
	}

	commissionRate := func(use, short string, wrap func(uint8) tx.Command) *cobra.Command {
		return variant(use, short,
			func(cmd *cobra.Command) {
				cmd.Flags().Uint8("commission-rate", 0, "commission rate in percent (0-100)")
				cmd.MarkFlagRequired("commission-rate") //nolint:errcheck
			},
			func(cmd *cobra.Command) (tx.Command, error) {
				rate, _ := cmd.Flags().GetUint8("commission-rate")
				return wrap(rate), nil
			})
	}

	return []*cobra.Command{
		variant("transfer", "Transfer tokens to an account",
			func(cmd *cobra.Command) {
				cmd.Flags().String("recipient", "", "recipient address (Base64URL)")
				cmd.Flags().Uint64("amount", 0, "amount to transfer")
				cmd.MarkFlagRequired("recipient") //nolint:errcheck
				cmd.MarkFlagRequired("amount")    //nolint:errcheck
			},
			func(cmd *cobra.Command) (tx.Command, error) {
				recipient, err := addressFlag(cmd, "recipient")
				if err != nil {
					return tx.Command{}, err
				}
				amount, _ := cmd.Flags().GetUint64("amount")
				return tx.Command{Transfer: &tx.Transfer{Recipient: recipient, Amount: amount}}, nil
			}),

		variant("deploy", "Deploy a contract",
			func(cmd *cobra.Command) {
				cmd.Flags().String("contract-code", "", "path to the contract bytecode (.wasm)")
				cmd.Flags().Uint32("cbi-version", 0, "contract binary interface version")
				cmd.MarkFlagRequired("contract-code") //nolint:errcheck
			},
			func(cmd *cobra.Command) (tx.Command, error) {
				// The bytecode is read now and embedded in the draft, so later
				// edits to the file on disk do not change what gets signed.
				path, _ := cmd.Flags().GetString("contract-code")
				cbiVersion, _ := cmd.Flags().GetUint32("cbi-version")
				code, err := os.ReadFile(path)
				if err != nil {
					return tx.Command{}, fmt.Errorf("reading contract code: %w", err)
				}
				return tx.Command{Deploy: &tx.Deploy{Contract: code, CBIVersion: cbiVersion}}, nil
			}),

		variant("call", "Call a method on a deployed contract",
			func(cmd *cobra.Command) {
				cmd.Flags().String("target", "", "contract address (Base64URL)")
				cmd.Flags().String("method", "", "method name to call")
				cmd.Flags().String("arguments", "", "JSON file of typed arguments")
				cmd.Flags().Uint64("amount", 0, "tokens to attach to the call")
				cmd.MarkFlagRequired("target") //nolint:errcheck
				cmd.MarkFlagRequired("method") //nolint:errcheck
			},
			func(cmd *cobra.Command) (tx.Command, error) {
				target, err := addressFlag(cmd, "target")
				if err != nil {
					return tx.Command{}, err
				}
				method, _ := cmd.Flags().GetString("method")
				amount, _ := cmd.Flags().GetUint64("amount")
				argsFile, _ := cmd.Flags().GetString("arguments")

				var arguments []tx.Bytes
				if argsFile != "" {
					af, err := encoding.LoadArgumentFile(argsFile)
					if err != nil {
						return tx.Command{}, err
					}
					blobs, err := encoding.EncodeArguments(af.Arguments)
					if err != nil {
						return tx.Command{}, fmt.Errorf("%s: %w", argsFile, err)
					}
					arguments = make([]tx.Bytes, len(blobs))
					for i, b := range blobs {
						arguments[i] = tx.Bytes(b)
					}
				}
				return tx.Command{Call: &tx.Call{
					Target:    target,
					Method:    method,
					Arguments: arguments,
					Amount:    amount,
				}}, nil
			}),

		variant("create-deposit", "Create a deposit with a pool operator",
			func(cmd *cobra.Command) {
				cmd.Flags().String("operator", "", "pool operator address (Base64URL)")
				cmd.Flags().Uint64("balance", 0, "initial deposit balance")
				cmd.Flags().Bool("auto-stake-rewards", false, "stake rewards automatically")
				cmd.MarkFlagRequired("operator") //nolint:errcheck
				cmd.MarkFlagRequired("balance")  //nolint:errcheck
			},
			func(cmd *cobra.Command) (tx.Command, error) {
				operator, err := addressFlag(cmd, "operator")
				if err != nil {
					return tx.Command{}, err
				}
				balance, _ := cmd.Flags().GetUint64("balance")
				autoStake, _ := cmd.Flags().GetBool("auto-stake-rewards")
				return tx.Command{CreateDeposit: &tx.CreateDeposit{
					Operator:         operator,
					Balance:          balance,
					AutoStakeRewards: autoStake,
				}}, nil
			}),

		variant("set-deposit-settings", "Change the settings of an existing deposit",
			func(cmd *cobra.Command) {
				cmd.Flags().String("operator", "", "pool operator address (Base64URL)")
				cmd.Flags().Bool("auto-stake-rewards", false, "stake rewards automatically")
				cmd.MarkFlagRequired("operator") //nolint:errcheck
			},
			func(cmd *cobra.Command) (tx.Command, error) {
				operator, err := addressFlag(cmd, "operator")
				if err != nil {
					return tx.Command{}, err
				}
				autoStake, _ := cmd.Flags().GetBool("auto-stake-rewards")
				return tx.Command{SetDepositSettings: &tx.SetDepositSettings{
					Operator:         operator,
					AutoStakeRewards: autoStake,
				}}, nil
			}),

		variant("top-up-deposit", "Add balance to an existing deposit",
			func(cmd *cobra.Command) {
				cmd.Flags().String("operator", "", "pool operator address (Base64URL)")
				cmd.Flags().Uint64("amount", 0, "amount to add")
				cmd.MarkFlagRequired("operator") //nolint:errcheck
				cmd.MarkFlagRequired("amount")   //nolint:errcheck
			},
			func(cmd *cobra.Command) (tx.Command, error) {
				operator, err := addressFlag(cmd, "operator")
				if err != nil {
					return tx.Command{}, err
				}
				amount, _ := cmd.Flags().GetUint64("amount")
				return tx.Command{TopUpDeposit: &tx.TopUpDeposit{Operator: operator, Amount: amount}}, nil
			}),

		operatorMaxAmount("withdraw-deposit", "Withdraw balance from a deposit", func(op tx.Address, max uint64) tx.Command {
			return tx.Command{WithdrawDeposit: &tx.WithdrawDeposit{Operator: op, MaxAmount: max}}
		}),
		operatorMaxAmount("stake-deposit", "Stake deposit balance to a pool", func(op tx.Address, max uint64) tx.Command {
			return tx.Command{StakeDeposit: &tx.StakeDeposit{Operator: op, MaxAmount: max}}
		}),
		operatorMaxAmount("unstake-deposit", "Unstake balance from a pool", func(op tx.Address, max uint64) tx.Command {
			return tx.Command{UnstakeDeposit: &tx.UnstakeDeposit{Operator: op, MaxAmount: max}}
		}),

		commissionRate("create-pool", "Create a pool operated by the signer", func(rate uint8) tx.Command {
			return tx.Command{CreatePool: &tx.CreatePool{CommissionRate: rate}}
		}),
		commissionRate("set-pool-settings", "Change the commission rate of the signer's pool", func(rate uint8) tx.Command {
			return tx.Command{SetPoolSettings: &tx.SetPoolSettings{CommissionRate: rate}}
		}),

		variant("delete-pool", "Delete the signer's pool", nil,
			func(cmd *cobra.Command) (tx.Command, error) {
				return tx.Command{DeletePool: &tx.DeletePool{}}, nil
			}),
		variant("next-epoch", "Advance the epoch (validator use only)", nil,
			func(cmd *cobra.Command) (tx.Command, error) {
				return tx.Command{NextEpoch: &tx.NextEpoch{}}, nil
			}),
	}
}

// ---------------------------------------------------------------------------
// submit
// ---------------------------------------------------------------------------

var (
	txSubmitFile    string
	txSubmitKeypair string
)

var txSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Sign a draft transaction and submit it to the RPC endpoint",
	Long: `Finalize the draft under the named keypair and post it to the configured
Fullnode RPC endpoint. The draft file is left untouched, so a rejected
transaction can be corrected and resubmitted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := tx.LoadDraft(txSubmitFile)
		if err != nil {
			return err
		}

		// Resolve the endpoint before prompting; a missing URL should not
		// cost the user a password entry.
		client, err := rpc.NewClient(cfg.URL)
		if err != nil {
			return err
		}

		store := openKeystore()
		password, err := keystorePassword(store)
		if err != nil {
			return err
		}
		defer wipe(password)

		kp, err := store.Unlock(txSubmitKeypair, password)
		if err != nil {
			return err
		}
		defer kp.Destroy()

		signed, err := tx.Sign(t, kp)
		if err != nil {
			return err
		}
		kp.Destroy()

		fmt.Printf("  %s %s\n", ui.Meta("Signer:"), ui.Addr(signed.Signer.String()))
		fmt.Printf("  %s %s\n", ui.Meta("Hash:"), ui.Addr(bytesText(signed.Hash)))
		fmt.Printf("  %s %s\n", ui.Meta("Signature:"), ui.Addr(bytesText(signed.Signature)))
		for i, c := range t.Commands {
			if name, err := c.Name(); err == nil {
				fmt.Printf("  %s %s\n", ui.Meta(fmt.Sprintf("Command %d:", i)), ui.Val(name))
			}
		}
		for i, c := range t.Commands {
			if c.Deploy != nil {
				addr := tx.ContractAddress(signed.Signer, t.Nonce)
				fmt.Printf("  %s %s\n", ui.Meta(fmt.Sprintf("Contract address (command %d):", i)), ui.Addr(addr.String()))
			}
		}

		result, err := client.SubmitTransaction(context.Background(), signed)
		if err != nil {
			return err
		}
		if result.Accepted {
			fmt.Println(ui.Success("Transaction accepted by " + cfg.URL))
		} else {
			fmt.Println(ui.Err("Transaction rejected: " + result.Message))
		}
		return nil
	},
}

func bytesText(b tx.Bytes) string {
	text, _ := b.MarshalText()
	return string(text)
}

func init() {
	txCreateCmd.PersistentFlags().Uint64("nonce", 0, "signer account nonce")
	txCreateCmd.PersistentFlags().Uint64("gas-limit", 0, "gas limit")
	txCreateCmd.PersistentFlags().Uint64("max-base-fee-per-gas", 8, "max base fee per gas")
	txCreateCmd.PersistentFlags().Uint64("priority-fee-per-gas", 0, "priority fee per gas")
	txCreateCmd.PersistentFlags().StringVar(&txCreateDestination, "destination", defaultDraftFile, "draft file to create")
	txCreateCmd.PersistentFlags().BoolVar(&txCreateOverwrite, "overwrite", false, "replace the draft file if it exists")
	txCreateCmd.MarkPersistentFlagRequired("nonce")     //nolint:errcheck
	txCreateCmd.MarkPersistentFlagRequired("gas-limit") //nolint:errcheck
	txCreateCmd.AddCommand(commandSubcommands(createDraft)...)

	txAppendCmd.PersistentFlags().StringVar(&txAppendFile, "file", defaultDraftFile, "draft file to append to")
	txAppendCmd.AddCommand(commandSubcommands(appendToDraft)...)

	txSubmitCmd.Flags().StringVar(&txSubmitFile, "file", defaultDraftFile, "draft file to sign and submit")
	txSubmitCmd.Flags().StringVar(&txSubmitKeypair, "keypair-name", "", "name of the signing keypair")
	txSubmitCmd.MarkFlagRequired("keypair-name") //nolint:errcheck

	transactionCmd.AddCommand(txCreateCmd, txAppendCmd, txSubmitCmd)
}
