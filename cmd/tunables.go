package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nasforge/sysinfo"
)

var tunablesCmd = &cobra.Command{
	Use:   "tunables",
	Short: "Tunable helpers",
}

var tunablesRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print tunable values sized for this host",
	RunE: func(cmd *cobra.Command, args []string) error {
		facts, err := sysinfo.Collect()
		if err != nil {
			return err
		}
		fmt.Printf("host: %d GiB RAM, %d cores\n\n", facts.TotalRAM>>30, facts.CPUCores)
		for _, rec := range sysinfo.Recommendations(facts) {
			fmt.Printf("%-8s %-24s %-16s %s\n", rec.Type, rec.Var, rec.Value, rec.Comment)
		}
		return nil
	},
}

func init() {
	tunablesCmd.AddCommand(tunablesRecommendCmd)
	rootCmd.AddCommand(tunablesCmd)
}
