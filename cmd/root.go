package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"nasforge/envnas"
	"nasforge/logger"
	"nasforge/plan"
	"nasforge/truenas"
)

var (
	cfgFile  string
	planFile string
	mode     string
)

var rootCmd = &cobra.Command{
	Use:   "nasforge",
	Short: "Provision TrueNAS SCALE from a declarative plan",
	Long: `nasforge applies a declarative YAML plan to a TrueNAS SCALE server:
service accounts and groups, ZFS datasets with tuned properties, periodic
snapshot tasks and system tunables.

Apply talks to the middleware REST API by default; --mode local falls back
to groupadd/useradd/zfs/chown on the box itself.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	logger.Sync()
	return err
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: nasforge.yml)")
	rootCmd.PersistentFlags().StringVarP(&planFile, "plan", "p", "", "plan file (default: plan.yaml)")
	rootCmd.PersistentFlags().StringVarP(&mode, "mode", "m", "", "apply mode: api or local (default: api)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("nasforge")
		viper.SetConfigType("yml")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	}

	if err := envnas.Setup(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading environment: %v\n", err)
		os.Exit(1)
	}
	logger.SetType(envnas.Mode)
}

func resolvedPlanPath() string {
	if planFile != "" {
		return planFile
	}
	if v := viper.GetString("plan"); v != "" {
		return v
	}
	return "plan.yaml"
}

func resolvedMode() (string, error) {
	m := mode
	if m == "" {
		m = viper.GetString("mode")
	}
	if m == "" {
		m = "api"
	}
	if m != "api" && m != "local" {
		return "", fmt.Errorf("invalid mode %q (want api or local)", m)
	}
	return m, nil
}

func loadPlan() (*plan.Plan, error) {
	p, err := plan.Load(resolvedPlanPath())
	if err != nil {
		return nil, fmt.Errorf("load plan %s: %w", resolvedPlanPath(), err)
	}
	return p, nil
}

// newClient resolves host and API key from env first, then the vault
// file, and builds the middleware client.
func newClient() (*truenas.Client, error) {
	host := envnas.TrueNASHost
	key := envnas.TrueNASAPIKey

	if host == "" || key == "" {
		if _, err := os.Stat(envnas.VaultFile); err == nil {
			store := plan.NewSecretsStore(envnas.VaultFile, envnas.VaultPassphrase)
			sec, err := store.Read()
			if err != nil {
				return nil, fmt.Errorf("read vault: %w", err)
			}
			if host == "" {
				host = sec.Host
			}
			if key == "" {
				key = sec.APIKey
			}
		}
	}

	if host == "" {
		return nil, fmt.Errorf("TRUENAS_HOST not set and no host in the vault")
	}
	if key == "" {
		return nil, fmt.Errorf("TRUENAS_API_KEY not set and no api key in the vault")
	}
	return truenas.NewClient(host, key, time.Duration(envnas.APITimeout)*time.Second), nil
}

// askForSudo guards local mode; shell fallback needs root.
func askForSudo() error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("local mode needs to run as root")
	}
	return nil
}
