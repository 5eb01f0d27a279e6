package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/parallelchain-io/pchain-client-cli/internal/keys"
	"github.com/parallelchain-io/pchain-client-cli/internal/ui"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Store and manage account keypairs (password protected)",
}

var keysNameFlag string

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate and save an Ed25519 keypair",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := openKeystore()
		if err := ensureKeystore(store); err != nil {
			return err
		}
		password, err := keystorePassword(store)
		if err != nil {
			return err
		}
		defer wipe(password)

		name, pub, err := store.Generate(keysNameFlag, password)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Keypair %q created.", name)))
		fmt.Printf("  %s %s\n", ui.Meta("Address:"), ui.Addr(keys.EncodeText(pub)))
		return nil
	},
}

var (
	keysImportPrivate string
	keysImportPublic  string
)

var keysImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an existing Ed25519 keypair",
	Long: `Import a (private, public) key pair given in the URL-safe Base64 text
encoding. The pair is verified (the public key must be derivable from the
private key), then encrypted and stored like a generated keypair.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := openKeystore()
		if err := ensureKeystore(store); err != nil {
			return err
		}
		password, err := keystorePassword(store)
		if err != nil {
			return err
		}
		defer wipe(password)

		pub, err := store.Import(keysNameFlag, keysImportPrivate, keysImportPublic, password)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Keypair %q imported.", keysNameFlag)))
		fmt.Printf("  %s %s\n", ui.Meta("Address:"), ui.Addr(keys.EncodeText(pub)))
		return nil
	},
}

var keysExportDestination string

var keysExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a keypair to a JSON file",
	Long: `Decrypt the named keypair and write it to a JSON file in the same text
encoding 'keys import' accepts. The file contains the private key in the
clear. Guard it accordingly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := openKeystore()
		password, err := keystorePassword(store)
		if err != nil {
			return err
		}
		defer wipe(password)

		exported, err := store.Export(keysNameFlag, password)
		if err != nil {
			return err
		}

		dest := keysExportDestination
		if dest == "" {
			dest = exported.Name + ".json"
		}
		data, err := json.MarshalIndent(exported, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(dest, data, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", dest, err)
		}

		fmt.Println(ui.Success(fmt.Sprintf("Keypair %q exported to %s", exported.Name, dest)))
		fmt.Println(ui.Warn("The file holds the private key in the clear. Do not share it."))
		return nil
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored keypair names and public keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := openKeystore()
		entries, err := store.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println(ui.Meta("No keypairs stored yet."))
			fmt.Println(ui.Hint("Create one with: pchain-client keys create"))
			return nil
		}
		for _, e := range entries {
			fmt.Printf("  %-24s %s\n", ui.Val(e.Name), ui.Addr(e.PublicKey))
		}
		fmt.Println(ui.Meta(fmt.Sprintf("%d keypair(s) stored", len(entries))))
		return nil
	},
}

func init() {
	keysCreateCmd.Flags().StringVar(&keysNameFlag, "name", "", "name for the keypair (generated when omitted)")

	keysImportCmd.Flags().StringVar(&keysImportPrivate, "private", "", "private key (Base64URL)")
	keysImportCmd.Flags().StringVar(&keysImportPublic, "public", "", "public key (Base64URL)")
	keysImportCmd.Flags().StringVar(&keysNameFlag, "name", "", "name for the keypair")
	keysImportCmd.MarkFlagRequired("private") //nolint:errcheck
	keysImportCmd.MarkFlagRequired("public")  //nolint:errcheck
	keysImportCmd.MarkFlagRequired("name")    //nolint:errcheck

	keysExportCmd.Flags().StringVar(&keysNameFlag, "name", "", "name of the keypair to export")
	keysExportCmd.Flags().StringVar(&keysExportDestination, "destination", "", "output file (default: <name>.json)")
	keysExportCmd.MarkFlagRequired("name") //nolint:errcheck

	keysCmd.AddCommand(keysCreateCmd, keysImportCmd, keysExportCmd, keysListCmd)
}

// openKeystore returns the keystore rooted at the config dir.
func openKeystore() *keys.Store {
	return keys.Open(cfg.Dir())
}

// ensureKeystore runs first-use setup: choose a password (twice for
// confirmation), or press enter to opt out of protection. Nothing is written
// until both prompts complete, so an interrupt leaves no partial keystore.
func ensureKeystore(store *keys.Store) error {
	if store.Initialized() {
		return nil
	}

	fmt.Println(ui.Meta("First use: set a password to protect your keypairs."))
	password, err := ui.PromptPassword("Password (press enter to skip protection)")
	if err != nil {
		return err
	}
	defer wipe(password)

	if len(password) > 0 {
		confirm, err := ui.PromptPassword("Re-enter password")
		if err != nil {
			return err
		}
		defer wipe(confirm)
		if !bytes.Equal(password, confirm) {
			return fmt.Errorf("passwords do not match")
		}
	} else {
		fmt.Println(ui.Warn("No password set; keypairs will not be protected at rest."))
	}

	if err := store.Setup(password); err != nil {
		return err
	}
	fmt.Println(ui.Success("Keystore initialized."))
	return nil
}

// keystorePassword prompts only when the keystore was set up with a password.
func keystorePassword(store *keys.Store) ([]byte, error) {
	protected, err := store.Protected()
	if err != nil {
		return nil, err
	}
	if !protected {
		return []byte{}, nil
	}
	return ui.PromptPassword("Password")
}

// wipe zeroes sensitive byte slices once they are no longer needed.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
