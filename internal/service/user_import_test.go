package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"patrolops/api/internal/metrics"
	"patrolops/api/internal/model"
)

func TestParseCSVImport(t *testing.T) {
	svc := NewUserImportService(nil, nil)
	input := utf8BOM + "\"ID*\",\"NOMBRE COMPLETO\",\"USUARIO\",\"CONTRASENA\",\"ROL\"\n" +
		"\"\",\"Pérez, Juan\",\"jperez\",\"abc\",\"PATRULLERO\"\n" +
		"\n" +
		"\"\",\"Ana \"\"La Jefa\"\"\",\"ana\",\"x\",\"ADMIN\"\n"

	records, err := svc.Parse("usuarios.csv", strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Pérez, Juan", records[0][1])
	assert.Equal(t, `Ana "La Jefa"`, records[1][1])
}

func TestImportFromExcelTemplate(t *testing.T) {
	env := newTestEnv(t)
	svc := NewUserImportService(env.users, metrics.New())

	tpl, err := svc.GenerateImportTemplate()
	require.NoError(t, err)

	untouched, err := svc.Import(context.Background(), "usuarios.xlsx", bytes.NewReader(tpl.Bytes()))
	require.NoError(t, err)
	assert.True(t, untouched.NoChanges(), "an untouched template imports nothing")
	users, err := env.users.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)

	f, err := excelize.OpenReader(bytes.NewReader(tpl.Bytes()))
	require.NoError(t, err)
	assert.Contains(t, f.GetSheetList(), UserSheetName)
	assert.Contains(t, f.GetSheetList(), "INSTRUCCIONES")
	example, err := f.GetCellValue("INSTRUCCIONES", "D4")
	require.NoError(t, err)
	assert.Equal(t, "jperez", example, "examples live on the instructions sheet")

	assert.NoError(t, f.SetSheetRow(UserSheetName, "A2", &[]interface{}{"", "Luis Gómez", "lgomez", "pw", "JEFE_DE_CUADRANTE", "REGION 3", "NO", "5500000000", "N-3"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	f.Close()

	result, err := svc.Import(context.Background(), "usuarios.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)

	_, err = env.users.Authenticate(context.Background(), "jperez", "abc123")
	assert.Error(t, err)

	users, err = env.users.List(context.Background())
	require.NoError(t, err)
	var luis *model.User
	for i := range users {
		if users[i].Username == "lgomez" {
			luis = &users[i]
		}
	}
	require.NotNil(t, luis)
	assert.Equal(t, model.RoleQuadrantChief, luis.Role)
	assert.Equal(t, "LUIS GOMEZ", luis.FullName)
}

func TestExportThenReimportIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.users.EnsureSeed(ctx)
	require.NoError(t, err)
	env.user(t, "jperez", model.RolePatrolOfficer, "REGION 1")
	svc := NewUserImportService(env.users, nil)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, &buf))
	assert.True(t, strings.HasPrefix(buf.String(), utf8BOM+`"ID","FULL_NAME"`))

	result, err := svc.Import(ctx, "usuarios.csv", &buf)
	require.NoError(t, err)
	assert.True(t, result.NoChanges())
	assert.Equal(t, 3, result.Unchanged)
}

func TestParseRejectsBrokenWorkbook(t *testing.T) {
	svc := NewUserImportService(nil, nil)
	_, err := svc.Parse("usuarios.xlsx", strings.NewReader("not a zip"))
	assert.True(t, IsValidation(err))
}
