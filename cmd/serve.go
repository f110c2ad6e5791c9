package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"nasforge/api"
	"nasforge/db"
	"nasforge/envnas"
	"nasforge/services"
	"nasforge/truenas"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read only status API",
	Long: `Serve exposes apply history and a live drift report over HTTP:

  GET /healthz
  GET /plan
  GET /runs
  GET /runs/{id}
  GET /drift`,
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
		if err := db.InitDB(context.Background(), envnas.DBPath); err != nil {
			return err
		}
		defer db.Close()

		return api.Start(serveAddr, &api.Server{Plan: p, Client: client, Mode: m})
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":9596", "listen address")
	rootCmd.AddCommand(serveCmd)
}
