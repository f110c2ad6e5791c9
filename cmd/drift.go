package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nasforge/services"
	"nasforge/truenas"
)

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Report live values that differ from the plan",
	Long: `Drift re-enumerates the plan against the target system and prints every
row whose live state differs. Nothing is mutated. Exit code 1 means drift
was found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPlan()
		if err != nil {
			return err
		}
		m, err := resolvedMode()
		if err != nil {
			return err
		}
		var client *truenas.Client
		if m == services.ModeAPI {
			client, err = newClient()
			if err != nil {
				return err
			}
		}

		applier := services.Applier{Plan: p, Client: client, Mode: m}
		items, err := applier.Drift()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("no drift")
			return nil
		}
		for _, it := range items {
			fmt.Printf("%-8s %-28s %-12s want %s, have %s\n", it.Kind, it.Name, it.Field, it.Want, it.Have)
		}
		return fmt.Errorf("%d rows drifted", len(items))
	},
}

func init() {
	rootCmd.AddCommand(driftCmd)
}
