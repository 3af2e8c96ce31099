package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/adanyl0v/go-tracker/internal/app"
)

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "tracker",
		Short:        "Task and shipment tracking API",
		Version:      app.Version,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			app.InitDefaultLogger()
			app.MustReadEnv()
			app.MustInitApplicationLogger()
		},
	}
	rootCmd.AddCommand(newServeCmd(), newMigrateCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			app.MustConnectPostgres()
			defer app.DisconnectPostgres()

			if migrate {
				app.MustMigrate()
			}
			app.MustListenAndServeHTTP()
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			app.MustConnectPostgres()
			defer app.DisconnectPostgres()

			app.MustMigrate()
		},
	}
}
