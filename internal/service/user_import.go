package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"patrolops/api/internal/metrics"
	"patrolops/api/internal/model"
	"patrolops/api/internal/textnorm"
)

// UserSheetName is the worksheet of the XLSX import template.
const UserSheetName = "USUARIOS"

// UserImportService reads and writes the user exchange files.
type UserImportService struct {
	users   *UserService
	metrics *metrics.Metrics
}

// NewUserImportService returns an import service writing through users.
func NewUserImportService(users *UserService, m *metrics.Metrics) *UserImportService {
	return &UserImportService{users: users, metrics: m}
}

// Import parses the file (CSV or XLSX, chosen by extension) and merges it
// into the user store.
func (s *UserImportService) Import(ctx context.Context, filename string, r io.Reader) (model.UserImportResult, error) {
	records, err := s.Parse(filename, r)
	if err != nil {
		return model.UserImportResult{}, err
	}
	result, err := s.users.ImportMerge(ctx, records)
	if err != nil {
		return result, err
	}
	s.metrics.ImportResult(result)
	return result, nil
}

// Parse returns the data records of an import file, header removed.
func (s *UserImportService) Parse(filename string, r io.Reader) ([][]string, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		records, err = s.ParseExcel(r)
	default:
		records, err = s.ParseCSV(r)
	}
	if err != nil {
		return nil, invalid("file", err.Error())
	}
	return dropHeader(records), nil
}

// ParseCSV reads a comma separated import file.
func (s *UserImportService) ParseCSV(r io.Reader) ([][]string, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read CSV: %w", err)
	}
	return records, nil
}

// ParseExcel reads the USUARIOS sheet, or the first sheet when it is missing.
func (s *UserImportService) ParseExcel(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheetName := sheets[0]
	for _, name := range sheets {
		if name == UserSheetName {
			sheetName = name
			break
		}
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("cannot read sheet %s: %w", sheetName, err)
	}
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if !isEmptyRow(row) {
			out = append(out, row)
		}
	}
	return out, nil
}

// dropHeader removes a leading header row, recognised by its first cell.
func dropHeader(records [][]string) [][]string {
	if len(records) == 0 || len(records[0]) == 0 {
		return records
	}
	first := removeRequiredMark(textnorm.Normalize(records[0][0]))
	if first == "ID" {
		return records[1:]
	}
	return records
}

func removeRequiredMark(s string) string {
	return strings.TrimSuffix(s, "*")
}

// GenerateImportTemplate builds the XLSX template: a header-only USUARIOS
// sheet and an INSTRUCCIONES sheet describing each column.
func (s *UserImportService) GenerateImportTemplate() (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", UserSheetName)
	columns := model.GetUserImportTemplateColumns()

	// header only; an untouched template must import nothing
	for i, col := range columns {
		header := col.Name
		if col.Required {
			header += "*"
		}
		headerCell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(UserSheetName, headerCell, header)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(columns))
	f.SetColWidth(UserSheetName, "A", lastCol, 20)

	const help = "INSTRUCCIONES"
	f.NewSheet(help)
	for i, h := range []string{"CAMPO", "OBLIGATORIO", "DESCRIPCION", "EJEMPLO"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(help, cell, h)
	}
	for i, col := range columns {
		row := i + 2
		required := "NO"
		if col.Required {
			required = "SI"
		}
		f.SetCellValue(help, fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue(help, fmt.Sprintf("B%d", row), required)
		f.SetCellValue(help, fmt.Sprintf("C%d", row), col.Description)
		f.SetCellValue(help, fmt.Sprintf("D%d", row), col.Example)
	}
	f.SetColWidth(help, "A", "A", 24)
	f.SetColWidth(help, "B", "B", 12)
	f.SetColWidth(help, "C", "C", 60)
	f.SetColWidth(help, "D", "D", 20)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return &buf, nil
}

// ExportCSV writes every user in the import format. Passwords are written as
// N/A so the file can be re-imported without touching them.
func (s *UserImportService) ExportCSV(ctx context.Context, w io.Writer) error {
	users, err := s.users.List(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(users)+1)
	rows = append(rows, model.UserImportHeader)
	for _, u := range users {
		wide := "NO"
		if u.MunicipalityWide {
			wide = "SI"
		}
		rows = append(rows, []string{
			u.ID,
			u.FullName,
			u.Username,
			model.NotAvailable,
			string(u.Role),
			orNA(u.AssignedRegion),
			wide,
			orNA(u.Phone),
			orNA(u.PayrollNumber),
		})
	}
	return writeQuotedCSV(w, rows)
}

func orNA(s string) string {
	if s == "" {
		return model.NotAvailable
	}
	return s
}
