package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleTableCoversEveryRole(t *testing.T) {
	require.Len(t, roleTable, len(AllRoles))
	for _, r := range AllRoles {
		_, ok := roleTable[r]
		assert.True(t, ok, "role %s has no capability row", r)
	}
}

func TestRoleScopes(t *testing.T) {
	tests := []struct {
		role Role
		want Scope
	}{
		{RoleAdmin, ScopeAll},
		{RoleDirector, ScopeAll},
		{RoleAnalyst, ScopeAll},
		{RoleRegional, ScopeRegion},
		{RoleShiftChief, ScopeRegion},
		{RoleMunicipalityChief, ScopeRegion},
		{RoleQuadrantChief, ScopeOwn},
		{RolePatrolOfficer, ScopeOwn},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CapabilitiesOf(tt.role).Scope, string(tt.role))
	}
	assert.Equal(t, ScopeOwn, CapabilitiesOf(Role("GHOST")).Scope)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("patrol_officer")
	require.NoError(t, err)
	assert.Equal(t, RolePatrolOfficer, r)

	r, err = ParseRole("JEFE_DE_TURNO")
	require.NoError(t, err)
	assert.Equal(t, RoleShiftChief, r)

	r, err = ParseRole("jefe de cuadrante")
	require.NoError(t, err)
	assert.Equal(t, RoleQuadrantChief, r)

	_, err = ParseRole("SHERIFF")
	assert.Error(t, err)
}

func TestRoleUnmarshalJSON(t *testing.T) {
	var body struct {
		Role Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"role":"ANALISTA"}`), &body))
	assert.Equal(t, RoleAnalyst, body.Role)
	assert.Error(t, json.Unmarshal([]byte(`{"role":"KING"}`), &body))
}

func TestCapabilities(t *testing.T) {
	admin := CapabilitiesOf(RoleAdmin)
	assert.True(t, admin.Has(CapManageUsers))
	assert.True(t, admin.Has(CapDeleteOperatives))

	director := CapabilitiesOf(RoleDirector)
	assert.True(t, director.Has(CapExportReports))
	assert.False(t, director.Has(CapManageUsers))
	assert.False(t, director.Has(CapManageCatalogs))

	analyst := CapabilitiesOf(RoleAnalyst)
	assert.True(t, analyst.Has(CapManageCatalogs))
	assert.False(t, analyst.Has(CapDeleteOperatives))

	officer := CapabilitiesOf(RolePatrolOfficer)
	for _, c := range []Capability{CapManageUsers, CapManageCatalogs, CapExportReports, CapDeleteOperatives} {
		assert.False(t, officer.Has(c))
	}
}

func TestUserCanChooseRegion(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin, AssignedRegion: "REGION 1"}).CanChooseRegion())
	assert.True(t, (&User{Role: RoleMunicipalityChief, AssignedRegion: "REGION 1"}).CanChooseRegion())
	assert.True(t, (&User{Role: RoleRegional, AssignedRegion: "REGION 1", MunicipalityWide: true}).CanChooseRegion())
	assert.False(t, (&User{Role: RoleRegional, AssignedRegion: "REGION 1"}).CanChooseRegion())
}

func TestStoredUserKeepsHash(t *testing.T) {
	users := []User{{ID: "u1", Username: "jperez", Password: "$2a$hash"}}
	data, err := json.Marshal(MarshalUsers(users))
	require.NoError(t, err)
	assert.Contains(t, string(data), "password_hash")

	var stored []StoredUser
	require.NoError(t, json.Unmarshal(data, &stored))
	back := UnmarshalUsers(stored)
	assert.Equal(t, "$2a$hash", back[0].Password)

	public, err := json.Marshal(users[0])
	require.NoError(t, err)
	assert.NotContains(t, string(public), "hash")
}
