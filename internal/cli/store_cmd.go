package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"patrolops/api/internal/docstore"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the configured store",
		Long: `Open the configured store, which applies pending migrations, and print
the resulting schema version. Redis and memory stores have no schema.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	pg, isPostgres := e.store.(*docstore.Postgres)
	if !isPostgres {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s store is ready\n", ok("OK"), e.cfg.StoreBackend)
		return nil
	}
	version, dirty, err := pg.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	state := ok("clean")
	if dirty {
		state = warn("dirty")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s postgres schema version %d (%s)\n", ok("OK"), version, state)
	return nil
}

// SeedCmd returns the seed command
func SeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the built-in accounts when the user store is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			seeded, err := e.users.EnsureSeed(cmd.Context())
			if err != nil {
				return err
			}
			if !seeded {
				fmt.Fprintf(cmd.OutOrStdout(), "%s users already exist, nothing seeded\n", warn("SKIP"))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s built-in users created; change their passwords\n", ok("OK"))
			return nil
		},
	}
}
