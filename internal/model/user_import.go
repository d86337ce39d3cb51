package model

// UserImportHeader is the fixed column order of the user exchange format.
var UserImportHeader = []string{
	"ID",
	"FULL_NAME",
	"USERNAME",
	"PASSWORD",
	"ROLE",
	"ASSIGNED_REGION",
	"IS_MUNICIPALITY_WIDE",
	"PHONE",
	"PAYROLL_NUMBER",
}

// MinUserImportColumns is the minimum number of columns a row needs.
const MinUserImportColumns = 5

// NotAvailable is the placeholder for empty cells in exchange files.
const NotAvailable = "N/A"

// UserImportRow is one parsed row of a user import file.
type UserImportRow struct {
	RowNum           int    `json:"row_num"`
	ID               string `json:"id"`
	FullName         string `json:"full_name"`
	Username         string `json:"username"`
	Password         string `json:"-"`
	Role             string `json:"role"`
	AssignedRegion   string `json:"assigned_region"`
	MunicipalityWide bool   `json:"municipality_wide"`
	Phone            string `json:"phone"`
	PayrollNumber    string `json:"payroll_number"`
}

// UserImportResult counts the outcome of one import.
type UserImportResult struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
}

// NoChanges reports the "no changes" outcome.
func (r UserImportResult) NoChanges() bool {
	return r.Inserted+r.Updated == 0
}

// UserImportTemplateColumn describes one column of the import template.
type UserImportTemplateColumn struct {
	Name        string `json:"name"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
	Example     string `json:"example"`
}

// GetUserImportTemplateColumns returns the template columns in file order.
func GetUserImportTemplateColumns() []UserImportTemplateColumn {
	return []UserImportTemplateColumn{
		{Name: "ID", Description: "Existing user id; empty for new users", Example: ""},
		{Name: "FULL_NAME", Required: true, Description: "Full name", Example: "JUAN PEREZ"},
		{Name: "USERNAME", Required: true, Description: "Login name, unique", Example: "jperez"},
		{Name: "PASSWORD", Description: "Required for new users; empty or N/A keeps the current one", Example: "abc123"},
		{Name: "ROLE", Required: true, Description: "ADMIN, DIRECTOR, ANALYST, REGIONAL, SHIFT_CHIEF, MUNICIPALITY_CHIEF, QUADRANT_CHIEF, PATROL_OFFICER", Example: "PATROL_OFFICER"},
		{Name: "ASSIGNED_REGION", Description: "Region for regional roles", Example: "REGION 1"},
		{Name: "IS_MUNICIPALITY_WIDE", Description: "SI/NO, TRUE/FALSE or 1/0", Example: "NO"},
		{Name: "PHONE", Description: "Digits only, up to 10", Example: "5512345678"},
		{Name: "PAYROLL_NUMBER", Description: "Payroll number", Example: "100234"},
	}
}
