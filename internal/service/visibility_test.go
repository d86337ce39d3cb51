package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"patrolops/api/internal/model"
)

func sampleOperatives() []model.Operative {
	at := func(day, hour int) time.Time { return time.Date(2024, 5, day, hour, 0, 0, 0, testLoc) }
	return []model.Operative{
		{ID: "OP24050103", Region: "REGION 2", Type: "REUNION VECINAL", CreatedBy: "u-quadrant", StartedAt: at(1, 22), Location: model.LocationData{Colony: "LA MAGDALENA"}},
		{ID: "OP24050102", Region: "REGION 1", Type: "OPERATIVO CARRUSEL", CreatedBy: "u-other", StartedAt: at(1, 12), Location: model.LocationData{Colony: "SAN JUAN"}},
		{ID: "OP24050101", Region: "REGION 1", Type: "OPERATIVO ALCOHOLIMETRO", CreatedBy: "u-quadrant", StartedAt: at(1, 8), Location: model.LocationData{Colony: "CENTRO"}},
		{ID: "OP24043001", Region: "REGION 3", Type: "OPERATIVO CARRUSEL", CreatedBy: "u-admin", StartedAt: at(30, 10).AddDate(0, -1, 0), Location: model.LocationData{Colony: "EL CARMEN"}},
	}
}

func ids(ops []model.Operative) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.ID
	}
	return out
}

func TestVisibilityScope(t *testing.T) {
	p := NewVisibilityPolicy(testLoc, 9)
	ops := sampleOperatives()

	tests := []struct {
		name string
		user model.User
		want []string
	}{
		{"admin sees everything", model.User{ID: "u-admin", Role: model.RoleAdmin}, ids(ops)},
		{"director sees everything", model.User{ID: "u-dir", Role: model.RoleDirector, AssignedRegion: "REGION 4"}, ids(ops)},
		{"regional sees its region", model.User{ID: "u-reg", Role: model.RoleRegional, AssignedRegion: "REGION 1"}, []string{"OP24050102", "OP24050101"}},
		{"municipality wide regional", model.User{ID: "u-reg", Role: model.RoleShiftChief, AssignedRegion: "REGION 1", MunicipalityWide: true}, ids(ops)},
		{"quadrant chief sees own records", model.User{ID: "u-quadrant", Role: model.RoleQuadrantChief, AssignedRegion: "REGION 1"}, []string{"OP24050103", "OP24050101"}},
		{"patrol officer without records", model.User{ID: "u-none", Role: model.RolePatrolOfficer, AssignedRegion: "REGION 1"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(p.Scope(&tt.user, ops)))
		})
	}
}

func TestQuadrantChiefNeverSeesOthers(t *testing.T) {
	p := NewVisibilityPolicy(testLoc, 9)
	user := &model.User{ID: "u-quadrant", Role: model.RoleQuadrantChief}
	for _, op := range sampleOperatives() {
		op := op
		assert.Equal(t, op.CreatedBy == user.ID, p.CanSee(user, &op), op.ID)
	}
	assert.False(t, p.CanSee(nil, &model.Operative{}))
}

func TestShiftWindow(t *testing.T) {
	p := NewVisibilityPolicy(testLoc, 9)

	start, end := p.ShiftWindow(time.Date(2024, 5, 1, 10, 0, 0, 0, testLoc))
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, testLoc), start)
	assert.Equal(t, time.Date(2024, 5, 2, 9, 0, 0, 0, testLoc), end)

	start, end = p.ShiftWindow(time.Date(2024, 5, 2, 8, 59, 0, 0, testLoc))
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, testLoc), start)
	assert.Equal(t, time.Date(2024, 5, 2, 9, 0, 0, 0, testLoc), end)

	midnight := NewVisibilityPolicy(testLoc, 0)
	start, _ = midnight.ShiftWindow(time.Date(2024, 5, 2, 8, 59, 0, 0, testLoc))
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, testLoc), start)
}

func TestDashboardAndSearch(t *testing.T) {
	p := NewVisibilityPolicy(testLoc, 9)
	admin := &model.User{ID: "u-admin", Role: model.RoleAdmin}
	now := time.Date(2024, 5, 1, 23, 0, 0, 0, testLoc)

	assert.Equal(t, []string{"OP24050103", "OP24050102"}, ids(p.Dashboard(admin, sampleOperatives(), now, "")))
	assert.Equal(t, []string{"OP24050103"}, ids(p.Dashboard(admin, sampleOperatives(), now, "magdalena")))

	assert.Equal(t, []string{"OP24050102", "OP24043001"}, ids(p.History(admin, sampleOperatives(), "carrusel")))
	assert.Equal(t, []string{"OP24050101"}, ids(Search(sampleOperatives(), "céntro")))
	assert.Equal(t, []string{"OP24043001"}, ids(Search(sampleOperatives(), "region 3")))
	assert.Len(t, Search(sampleOperatives(), "  "), 4)
}
