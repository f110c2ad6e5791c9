package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nasforge/envnas"
	"nasforge/plan"
)

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage the encrypted secrets file",
	Long: `The secrets file is Ansible Vault encrypted YAML holding the middleware
host and API key. The passphrase comes from VAULT_PASS_FILE or VAULT_PASS.`,
}

func secretsStore() *plan.SecretsStore {
	return plan.NewSecretsStore(envnas.VaultFile, envnas.VaultPassphrase)
}

var vaultInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty encrypted secrets file",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := secretsStore()
		if err := store.Setup(); err != nil {
			return err
		}
		fmt.Println("vault ready:", store.Path)
		return nil
	},
}

var vaultSetKeyCmd = &cobra.Command{
	Use:   "set-key <api-key>",
	Short: "Store the middleware API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := secretsStore()
		if err := store.Setup(); err != nil {
			return err
		}
		return store.SetAPIKey(args[0])
	},
}

var vaultSetHostCmd = &cobra.Command{
	Use:   "set-host <host>",
	Short: "Store the middleware host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := secretsStore()
		if err := store.Setup(); err != nil {
			return err
		}
		sec, err := store.Read()
		if err != nil {
			return err
		}
		sec.Host = args[0]
		return store.Write(sec)
	},
}

var vaultShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored host (the key stays hidden)",
	RunE: func(cmd *cobra.Command, args []string) error {
		sec, err := secretsStore().Read()
		if err != nil {
			return err
		}
		masked := "(not set)"
		if sec.APIKey != "" {
			masked = "********"
		}
		fmt.Printf("host: %s\napi key: %s\n", sec.Host, masked)
		return nil
	},
}

func init() {
	vaultCmd.AddCommand(vaultInitCmd)
	vaultCmd.AddCommand(vaultSetKeyCmd)
	vaultCmd.AddCommand(vaultSetHostCmd)
	vaultCmd.AddCommand(vaultShowCmd)
	rootCmd.AddCommand(vaultCmd)
}
