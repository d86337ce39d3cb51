package handler

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patrolops/api/internal/model"
)

func TestCatalogEndpoints(t *testing.T) {
	api := newTestAPI(t)
	admin, _ := api.login(t, "root", model.RoleAdmin, "")
	officer, _ := api.login(t, "patrol1", model.RolePatrolOfficer, "REGION 1")

	w := api.do(t, http.MethodGet, "/api/v1/catalogs/ranks", officer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	before := decode[[]string](t, w)
	require.NotEmpty(t, before)

	assert.Equal(t, http.StatusForbidden,
		api.do(t, http.MethodPost, "/api/v1/catalogs/ranks", officer, gin.H{"value": "cabo"}).Code)

	w = api.do(t, http.MethodPost, "/api/v1/catalogs/ranks", admin, gin.H{"value": "cabo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	after := decode[[]string](t, w)
	assert.Len(t, after, len(before)+1)
	assert.Equal(t, "CABO", after[len(after)-1])

	w = api.do(t, http.MethodPost, "/api/v1/catalogs/ranks", admin, gin.H{"value": "Cabo"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/catalogs/ranks/reorder", admin, gin.H{"index": len(after) - 1, "direction": "up"})
	require.Equal(t, http.StatusOK, w.Code)
	moved := decode[[]string](t, w)
	assert.Equal(t, "CABO", moved[len(moved)-2])

	w = api.do(t, http.MethodPost, "/api/v1/catalogs/ranks/reorder", admin, gin.H{"index": 0, "direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodDelete, "/api/v1/catalogs/ranks/items?value=CABO", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, before, decode[[]string](t, w))

	w = api.do(t, http.MethodPost, "/api/v1/catalogs/ranks/sort", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.IsIncreasing(t, decode[[]string](t, w))

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/api/v1/catalogs/weapons", admin, nil).Code)

	w = api.do(t, http.MethodGet, "/api/v1/regions", officer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	regions := decode[[]model.RegionInfo](t, w)
	assert.Len(t, regions, len(model.Regions))
}

func TestColonyEndpoints(t *testing.T) {
	api := newTestAPI(t)
	admin, _ := api.login(t, "root", model.RoleAdmin, "")

	entry := gin.H{"region": "region 1", "quadrant": "c-03", "colony": "La Asunción"}
	w := api.do(t, http.MethodPost, "/api/v1/colonies", admin, entry)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := decode[[]model.CatalogEntry](t, w)
	assert.Equal(t, model.CatalogEntry{Region: "REGION 1", Quadrant: "C-03", Colony: "LA ASUNCION"}, list[len(list)-1])

	w = api.do(t, http.MethodPost, "/api/v1/colonies", admin, entry)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/colonies?region=REGION%201", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode[[]string](t, w), "LA ASUNCION")

	q := url.Values{"region": {"REGION 1"}, "colony": {"la asuncion"}}
	w = api.do(t, http.MethodDelete, "/api/v1/colonies?"+q.Encode(), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, decode[[]model.CatalogEntry](t, w), model.CatalogEntry{Region: "REGION 1", Quadrant: "C-03", Colony: "LA ASUNCION"})

	w = api.do(t, http.MethodDelete, "/api/v1/colonies?"+q.Encode(), admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = api.do(t, http.MethodDelete, "/api/v1/colonies?region=REGION%201", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
