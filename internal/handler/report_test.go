package handler

import (
	"bytes"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patrolops/api/internal/model"
	"patrolops/api/internal/service"
)

func reportPath(values url.Values) string {
	return "/api/v1/reports/operatives?" + values.Encode()
}

func TestExportOperativesReport(t *testing.T) {
	api := newTestAPI(t)
	admin, _ := api.login(t, "root", model.RoleAdmin, "")
	officer, _ := api.login(t, "patrol1", model.RolePatrolOfficer, "REGION 1")

	w := api.do(t, http.MethodPost, "/api/v1/operatives", officer, createOperativeBody("REGION 1", "C-01"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	op := decode[model.Operative](t, w)

	today := time.Now().In(testLoc)
	rangeQuery := url.Values{
		"from": {today.AddDate(0, 0, -1).Format(dateLayout)},
		"to":   {today.AddDate(0, 0, 1).Format(dateLayout)},
	}

	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodGet, reportPath(rangeQuery), officer, nil).Code)

	w = api.do(t, http.MethodGet, reportPath(rangeQuery), admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "OPERATIVOS_COMPLETO_")
	rows, err := service.ReadReport(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, op.ID, rows[0]["ID"])

	audit := url.Values{"flavor": {"audit"}, "format": {"xlsx"}}
	for k, v := range rangeQuery {
		audit[k] = v
	}
	w = api.do(t, http.MethodGet, reportPath(audit), admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "OPERATIVOS_AUDITORIA_")
}

func TestExportOperativesReportErrors(t *testing.T) {
	api := newTestAPI(t)
	admin, _ := api.login(t, "root", model.RoleAdmin, "")
	w := api.do(t, http.MethodPost, "/api/v1/operatives", admin, createOperativeBody("REGION 1", "C-01"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	today := time.Now().In(testLoc).Format(dateLayout)
	tests := []struct {
		name  string
		query url.Values
		want  int
	}{
		{"missing range", url.Values{"from": {today}}, http.StatusBadRequest},
		{"bad date", url.Values{"from": {"01/05/2024"}, "to": {today}}, http.StatusBadRequest},
		{"reversed range", url.Values{"from": {today}, "to": {"2000-01-01"}}, http.StatusBadRequest},
		{"unknown format", url.Values{"from": {today}, "to": {today}, "format": {"pdf"}}, http.StatusBadRequest},
		{"unknown flavor", url.Values{"from": {today}, "to": {today}, "flavor": {"summary"}}, http.StatusBadRequest},
		{"unknown column", url.Values{"from": {today}, "to": {today}, "columns": {"NOPE"}}, http.StatusBadRequest},
		{"empty range", url.Values{"from": {"2000-01-01"}, "to": {"2000-01-02"}}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodGet, reportPath(tt.query), admin, nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestListReportFlavors(t *testing.T) {
	api := newTestAPI(t)
	analyst, _ := api.login(t, "analyst", model.RoleAnalyst, "")

	w := api.do(t, http.MethodGet, "/api/v1/reports/flavors", analyst, nil)
	require.Equal(t, http.StatusOK, w.Code)
	flavors := decode[map[string][]string](t, w)
	assert.Equal(t, service.CompleteFlavor.Headers(), flavors[service.FlavorComplete])
	assert.Equal(t, service.AuditFlavor.Headers(), flavors[service.FlavorAudit])
}
