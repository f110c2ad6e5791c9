package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nasforge/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Work with the provisioning plan",
}

var planValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse and validate the plan file",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPlan()
		if err != nil {
			return err
		}
		fmt.Printf("plan ok: %d groups, %d services, %d datasets, %d snapshot tasks, %d tunables\n",
			len(p.Groups), len(p.Services), len(p.Datasets), len(p.Snapshots), len(p.Tunables))
		return nil
	},
}

var planInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the built in seed plan to disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolvedPlanPath()
		if err := plan.WriteSeed(path); err != nil {
			return err
		}
		fmt.Println("wrote", path)
		return nil
	},
}

func init() {
	planCmd.AddCommand(planValidateCmd)
	planCmd.AddCommand(planInitCmd)
	rootCmd.AddCommand(planCmd)
}
