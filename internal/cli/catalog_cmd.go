package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"patrolops/api/internal/model"
)

// CatalogCmd returns the catalog command group
func CatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and edit the reference catalogs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list [NAME]",
		Short: "Print a catalog, or the catalog names without arguments",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCatalogList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME VALUE",
		Short: "Append a value to a catalog",
		Args:  cobra.ExactArgs(2),
		RunE:  runCatalogAdd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "sort NAME",
		Short: "Sort a catalog alphabetically",
		Args:  cobra.ExactArgs(1),
		RunE:  runCatalogSort,
	})
	return cmd
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, k := range model.StringCatalogs {
			fmt.Fprintln(out, k)
		}
		fmt.Fprintln(out, model.CatalogColonies)
		return nil
	}

	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	if args[0] == string(model.CatalogColonies) {
		entries, err := e.catalogs.ListColonies(cmd.Context())
		if err != nil {
			return err
		}
		for _, c := range entries {
			fmt.Fprintf(out, "%-10s %-6s %s\n", c.Region, c.Quadrant, c.Colony)
		}
		return nil
	}

	key, err := model.ParseCatalogKey(args[0])
	if err != nil {
		return err
	}
	list, err := e.catalogs.List(cmd.Context(), key)
	if err != nil {
		return err
	}
	for i, v := range list {
		fmt.Fprintf(out, "%3d  %s\n", i, v)
	}
	return nil
}

func runCatalogAdd(cmd *cobra.Command, args []string) error {
	key, err := model.ParseCatalogKey(args[0])
	if err != nil {
		return err
	}
	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	list, err := e.catalogs.Append(cmd.Context(), key, args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s now has %d entries\n", ok("OK"), key, len(list))
	return nil
}

func runCatalogSort(cmd *cobra.Command, args []string) error {
	key, err := model.ParseCatalogKey(args[0])
	if err != nil {
		return err
	}
	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.catalogs.SortAlphabetically(cmd.Context(), key); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s sorted\n", ok("OK"), key)
	return nil
}
