package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"patrolops/api/internal/model"
	"patrolops/api/internal/service"
)

// ReportCmd returns the report command
func ReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export operatives of a date range",
		Long: `Export the operatives started between --from and --to (both inclusive,
YYYY-MM-DD) as CSV or XLSX. The export runs with the visibility and
permissions of --as.

Usage:
  opsctl report --from 2024-05-01 --to 2024-05-31
  opsctl report --from 2024-05-01 --to 2024-05-01 --flavor audit --format xlsx -o audit.xlsx`,
		RunE: runReport,
	}

	cmd.Flags().String("from", "", "First day (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Last day (YYYY-MM-DD), defaults to --from")
	cmd.Flags().String("flavor", service.FlavorComplete, "Report flavor: complete or audit")
	cmd.Flags().String("format", string(service.FormatCSV), "csv or xlsx")
	cmd.Flags().StringSlice("columns", nil, "Subset of column headers")
	cmd.Flags().String("as", "admin", "Username whose permissions apply")
	cmd.Flags().StringP("output", "o", "", "Output file (default: generated name, - for stdout)")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	fromStr, _ := flags.GetString("from")
	toStr, _ := flags.GetString("to")
	flavor, _ := flags.GetString("flavor")
	formatStr, _ := flags.GetString("format")
	columns, _ := flags.GetStringSlice("columns")
	as, _ := flags.GetString("as")
	path, _ := flags.GetString("output")

	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	req, err := buildReportRequest(e.cfg.Location(), fromStr, toStr, flavor, formatStr, columns)
	if err != nil {
		return err
	}

	user, err := e.users.GetByUsername(cmd.Context(), as)
	if err != nil {
		return err
	}
	if !user.Capabilities().Has(model.CapExportReports) {
		return fmt.Errorf("%s (%s) cannot export reports", user.Username, user.Role)
	}

	if path == "" {
		path = e.reports.FileName(req)
	}
	w, err := output(path)
	if err != nil {
		return err
	}
	if err := e.reports.Export(cmd.Context(), user, req, w); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if path != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s report written to %s\n", ok("OK"), path)
	}
	return nil
}

func buildReportRequest(loc *time.Location, fromStr, toStr, flavor, formatStr string, columns []string) (service.ReportRequest, error) {
	from, err := time.ParseInLocation("2006-01-02", fromStr, loc)
	if err != nil {
		return service.ReportRequest{}, fmt.Errorf("--from: %w", err)
	}
	to := from
	if toStr != "" {
		if to, err = time.ParseInLocation("2006-01-02", toStr, loc); err != nil {
			return service.ReportRequest{}, fmt.Errorf("--to: %w", err)
		}
	}
	format, err := service.ParseReportFormat(formatStr)
	if err != nil {
		return service.ReportRequest{}, err
	}
	for i := range columns {
		columns[i] = strings.TrimSpace(columns[i])
	}
	return service.ReportRequest{
		From:    from,
		To:      to,
		Flavor:  flavor,
		Columns: columns,
		Format:  format,
	}, nil
}
