package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the closed set of user roles.
type Role string

const (
	RoleAdmin             Role = "ADMIN"
	RoleDirector          Role = "DIRECTOR"
	RoleAnalyst           Role = "ANALYST"
	RoleRegional          Role = "REGIONAL"
	RoleShiftChief        Role = "SHIFT_CHIEF"
	RoleMunicipalityChief Role = "MUNICIPALITY_CHIEF"
	RoleQuadrantChief     Role = "QUADRANT_CHIEF"
	RolePatrolOfficer     Role = "PATROL_OFFICER"
)

// AllRoles lists every role in display order.
var AllRoles = []Role{
	RoleAdmin,
	RoleDirector,
	RoleRegional,
	RoleShiftChief,
	RoleQuadrantChief,
	RolePatrolOfficer,
	RoleMunicipalityChief,
	RoleAnalyst,
}

// legacyRoles maps role names used by the first dashboard release.
var legacyRoles = map[string]Role{
	"JEFE_DE_TURNO":     RoleShiftChief,
	"JEFE_AGRUPAMIENTO": RoleMunicipalityChief,
	"JEFE_DE_CUADRANTE": RoleQuadrantChief,
	"PATRULLERO":        RolePatrolOfficer,
	"ANALISTA":          RoleAnalyst,
}

// ParseRole accepts canonical and legacy role names, case-insensitively.
func ParseRole(s string) (Role, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, " ", "_")
	r := Role(key)
	if _, ok := roleTable[r]; ok {
		return r, nil
	}
	if legacy, ok := legacyRoles[key]; ok {
		return legacy, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is part of the enumeration.
func (r Role) Valid() bool {
	_, ok := roleTable[r]
	return ok
}

// UnmarshalJSON rejects roles outside the enumeration.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Scope decides which operatives a role may see.
type Scope int

const (
	// ScopeAll sees every record.
	ScopeAll Scope = iota
	// ScopeRegion sees the records of the user's assigned region, or all of
	// them when the user is municipality-wide or has no region.
	ScopeRegion
	// ScopeOwn sees only the records the user created.
	ScopeOwn
)

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeRegion:
		return "region"
	case ScopeOwn:
		return "own"
	}
	return fmt.Sprintf("scope(%d)", int(s))
}

// Capability names a permission checked by the HTTP layer.
type Capability string

const (
	CapManageUsers      Capability = "users.manage"
	CapManageCatalogs   Capability = "catalogs.manage"
	CapExportReports    Capability = "reports.export"
	CapDeleteOperatives Capability = "operatives.delete"
)

// RoleCapabilities is one row of the capability table.
type RoleCapabilities struct {
	Scope            Scope `json:"scope"`
	ManageUsers      bool  `json:"manage_users"`
	ManageCatalogs   bool  `json:"manage_catalogs"`
	ExportReports    bool  `json:"export_reports"`
	DeleteOperatives bool  `json:"delete_operatives"`
	ChooseRegion     bool  `json:"choose_region"`
}

// Has reports whether the row grants c.
func (rc RoleCapabilities) Has(c Capability) bool {
	switch c {
	case CapManageUsers:
		return rc.ManageUsers
	case CapManageCatalogs:
		return rc.ManageCatalogs
	case CapExportReports:
		return rc.ExportReports
	case CapDeleteOperatives:
		return rc.DeleteOperatives
	}
	return false
}

var roleTable = map[Role]RoleCapabilities{
	RoleAdmin: {
		Scope:            ScopeAll,
		ManageUsers:      true,
		ManageCatalogs:   true,
		ExportReports:    true,
		DeleteOperatives: true,
		ChooseRegion:     true,
	},
	RoleDirector:          {Scope: ScopeAll, ExportReports: true},
	RoleAnalyst:           {Scope: ScopeAll, ManageCatalogs: true, ExportReports: true},
	RoleRegional:          {Scope: ScopeRegion},
	RoleShiftChief:        {Scope: ScopeRegion},
	RoleMunicipalityChief: {Scope: ScopeRegion, ChooseRegion: true},
	RoleQuadrantChief:     {Scope: ScopeOwn},
	RolePatrolOfficer:     {Scope: ScopeOwn},
}

// CapabilitiesOf returns the capability row of r. Unknown roles get the most
// restrictive row.
func CapabilitiesOf(r Role) RoleCapabilities {
	if rc, ok := roleTable[r]; ok {
		return rc
	}
	return RoleCapabilities{Scope: ScopeOwn}
}

// IsUnrestricted reports whether the role never carries an assigned region.
func (r Role) IsUnrestricted() bool {
	return CapabilitiesOf(r).Scope == ScopeAll
}
