package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// UsersCmd returns the users command group
func UsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Import and export the user store",
	}
	cmd.AddCommand(usersImportCmd())
	cmd.AddCommand(usersExportCmd())
	cmd.AddCommand(usersTemplateCmd())
	cmd.AddCommand(usersListCmd())
	return cmd
}

func usersImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Merge a CSV or XLSX user file into the store",
		Long: `Rows are matched to existing users by ID, then by username. Matching rows
that differ update the user, unknown rows are inserted. A password of N/A
keeps the stored password.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := e.importer.Import(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.NoChanges() {
				fmt.Fprintf(out, "%s no changes (%d unchanged, %d skipped)\n", warn("SKIP"), result.Unchanged, result.Skipped)
				return nil
			}
			fmt.Fprintf(out, "%s inserted %d, updated %d, unchanged %d, skipped %d\n",
				ok("OK"), result.Inserted, result.Updated, result.Unchanged, result.Skipped)
			return nil
		},
	}
}

func usersExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every user as CSV in the import format",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("output")
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			w, err := output(path)
			if err != nil {
				return err
			}
			if err := e.importer.ExportCSV(cmd.Context(), w); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	return cmd
}

func usersTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the XLSX import template",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("output")
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			buf, err := e.importer.GenerateImportTemplate()
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s template written to %s\n", ok("OK"), path)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "user_import_template.xlsx", "Output file")
	return cmd
}

func usersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			users, err := e.users.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, u := range users {
				region := u.AssignedRegion
				if region == "" || u.MunicipalityWide {
					region = "*"
				}
				fmt.Fprintf(out, "%-20s %-20s %-10s %s\n", bold(u.Username), u.Role, region, u.FullName)
			}
			fmt.Fprintf(out, "%d users\n", len(users))
			return nil
		},
	}
}
