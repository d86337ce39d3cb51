package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patrolops/api/internal/model"
	"patrolops/api/internal/service"
)

func setupStore(t *testing.T) string {
	t.Helper()
	color.NoColor = true
	dir := t.TempDir()
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "patrolops.db"))
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "opsctl", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(MigrateCmd(), SeedCmd(), UsersCmd(), CatalogCmd(), ReportCmd())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateAndSeed(t *testing.T) {
	setupStore(t)

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite store is ready")

	out, err = execute(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "built-in users created")

	out, err = execute(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing seeded")

	out, err = execute(t, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "admin")
	assert.Contains(t, out, "alpha")
}

func TestUsersImportExport(t *testing.T) {
	dir := setupStore(t)
	_, err := execute(t, "seed")
	require.NoError(t, err)

	in := filepath.Join(dir, "users.csv")
	csv := strings.Join(model.UserImportHeader, ",") + "\n" +
		",Maria Lopez,mlopez,secret,REGIONAL,REGION 2,NO,5512345678,7788\n"
	require.NoError(t, os.WriteFile(in, []byte(csv), 0o644))

	out, err := execute(t, "users", "import", in)
	require.NoError(t, err)
	assert.Contains(t, out, "inserted 1")

	out, err = execute(t, "users", "import", in)
	require.NoError(t, err)
	assert.Contains(t, out, "no changes")

	exported := filepath.Join(dir, "export.csv")
	_, err = execute(t, "users", "export", "-o", exported)
	require.NoError(t, err)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mlopez")

	template := filepath.Join(dir, "template.xlsx")
	out, err = execute(t, "users", "template", "-o", template)
	require.NoError(t, err)
	assert.Contains(t, out, template)
	info, err := os.Stat(template)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestCatalogCommands(t *testing.T) {
	setupStore(t)

	out, err := execute(t, "catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ranks")
	assert.Contains(t, out, "colonies")

	out, err = execute(t, "catalog", "add", "ranks", "comisario jefe")
	require.NoError(t, err)
	assert.Contains(t, out, "ranks now has")

	_, err = execute(t, "catalog", "add", "ranks", "COMISARIO JEFE")
	assert.ErrorIs(t, err, service.ErrDuplicate)

	out, err = execute(t, "catalog", "list", "ranks")
	require.NoError(t, err)
	assert.Contains(t, out, "COMISARIO JEFE")

	_, err = execute(t, "catalog", "list", "weapons")
	assert.Error(t, err)

	out, err = execute(t, "catalog", "list", "colonies")
	require.NoError(t, err)
	assert.Contains(t, out, "REGION 1")
}

func TestReportCommand(t *testing.T) {
	dir := setupStore(t)
	_, err := execute(t, "seed")
	require.NoError(t, err)

	path := filepath.Join(dir, "report.csv")
	_, err = execute(t, "report", "--from", "2024-05-01", "-o", path)
	assert.ErrorIs(t, err, service.ErrNoRecords)

	_, err = execute(t, "report", "--from", "2024-05-01", "--format", "pdf")
	assert.Error(t, err)

	_, err = execute(t, "report", "--from", "05/01/2024")
	assert.Error(t, err)

	_, err = execute(t, "report", "--from", "2024-05-01", "--as", "nobody")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestBuildReportRequest(t *testing.T) {
	req, err := buildReportRequest(time.UTC, "2024-05-01", "", service.FlavorAudit, "xlsx", []string{" FOLIO ", "ESTADO"})
	require.NoError(t, err)
	assert.Equal(t, req.From, req.To)
	assert.Equal(t, service.FormatXLSX, req.Format)
	assert.Equal(t, []string{"FOLIO", "ESTADO"}, req.Columns)
}
