package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"patrolops/api/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "opsctl",
		Short: "Maintenance tool for the PatrolOps store",
		Long: `opsctl works directly on the store configured through the same environment
variables as the API (STORE_BACKEND, DATABASE_URL, REDIS_URL, SQLITE_PATH).`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.MigrateCmd())
	rootCmd.AddCommand(cli.SeedCmd())
	rootCmd.AddCommand(cli.UsersCmd())
	rootCmd.AddCommand(cli.CatalogCmd())
	rootCmd.AddCommand(cli.ReportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
