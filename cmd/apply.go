package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"nasforge/db"
	"nasforge/envnas"
	"nasforge/services"
	"nasforge/truenas"
)

var (
	applyPhase  int
	applyDryRun bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the plan to the target system",
	Long: `Apply runs the four provisioning phases in order:

  1. groups, then users with placeholder homes
  2. datasets and their properties
  3. home directories assigned and chowned
  4. snapshot tasks and tunables

Already existing entities are left alone; the first hard error aborts.`,
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
		} else if err := askForSudo(); err != nil {
			return err
		}

		record := !applyDryRun
		if record {
			if err := db.InitDB(context.Background(), envnas.DBPath); err != nil {
				return err
			}
			defer db.Close()
		}

		applier := services.Applier{
			Plan:   p,
			Client: client,
			Mode:   m,
			DryRun: applyDryRun,
			Record: record,
		}

		var applyErr error
		if applyPhase > 0 {
			applyErr = applier.ApplyPhase(applyPhase)
		} else {
			_, applyErr = applier.ApplyAll()
		}

		printResults(applier.Results())
		return applyErr
	},
}

func printResults(results []services.RowResult) {
	counts := map[string]int{}
	for _, r := range results {
		counts[r.Outcome]++
		line := fmt.Sprintf("phase %d  %-8s %-28s %s", r.Phase, r.Kind, r.Name, r.Outcome)
		if r.Detail != "" {
			line += "  (" + r.Detail + ")"
		}
		fmt.Println(line)
	}
	fmt.Printf("\n%d rows: %d created, %d updated, %d unchanged, %d skipped, %d failed\n",
		len(results), counts[services.OutcomeCreated], counts[services.OutcomeUpdated],
		counts[services.OutcomeUnchanged], counts[services.OutcomeSkipped], counts[services.OutcomeFailed])
}

func init() {
	applyCmd.Flags().IntVar(&applyPhase, "phase", 0, "run a single phase (1-4)")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "report what would change without mutating")
	rootCmd.AddCommand(applyCmd)
}
