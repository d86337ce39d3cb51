package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"patrolops/api/internal/model"
	"patrolops/api/internal/textnorm"
)

// ReportFormat is the output encoding of an export.
type ReportFormat string

const (
	FormatCSV  ReportFormat = "csv"
	FormatXLSX ReportFormat = "xlsx"
)

// ParseReportFormat defaults to CSV.
func ParseReportFormat(s string) (ReportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Placeholders for missing optional values.
const (
	placeholderNA      = "N/A"
	placeholderDash    = "--"
	placeholderTime    = "--:--"
	placeholderPending = "EN DESARROLLO"
)

// ReportColumn renders one cell of an operative row.
type ReportColumn struct {
	Header string
	Value  func(op *model.Operative, loc *time.Location) string
}

// ReportFlavor is a named column set plus the hour at which its date range
// starts and ends.
type ReportFlavor struct {
	Name       string
	FilePrefix string
	Columns    []ReportColumn
	// CutoffHour is fixed for the calendar flavor; -1 means use the configured
	// export cutoff.
	CutoffHour int
}

const (
	FlavorComplete = "complete"
	FlavorAudit    = "audit"
)

// CompleteFlavor covers every field of the operative, by calendar day.
var CompleteFlavor = ReportFlavor{
	Name:       FlavorComplete,
	FilePrefix: "OPERATIVOS_COMPLETO",
	CutoffHour: 0,
	Columns: []ReportColumn{
		{"ID", func(op *model.Operative, _ *time.Location) string { return op.ID }},
		{"TIPO", func(op *model.Operative, _ *time.Location) string { return op.Type }},
		{"TEMATICA_REUNION", func(op *model.Operative, _ *time.Location) string { return or(op.MeetingTopic, placeholderNA) }},
		{"ESTATUS", func(op *model.Operative, _ *time.Location) string { return statusLabel(op.Status) }},
		{"FECHA", func(op *model.Operative, loc *time.Location) string { return op.StartedAt.In(loc).Format("2006-01-02") }},
		{"INICIO", func(op *model.Operative, loc *time.Location) string { return op.StartedAt.In(loc).Format("15:04") }},
		{"CIERRE", func(op *model.Operative, loc *time.Location) string { return closedAt(op, loc, placeholderDash) }},
		{"REGION", func(op *model.Operative, _ *time.Location) string { return op.Region }},
		{"CUADRANTE", func(op *model.Operative, _ *time.Location) string { return op.Quadrant }},
		{"COLONIA", func(op *model.Operative, _ *time.Location) string { return op.Location.Colony }},
		{"CALLE", func(op *model.Operative, _ *time.Location) string { return op.Location.Street }},
		{"COORDENADAS", func(op *model.Operative, _ *time.Location) string {
			return strconv.FormatFloat(op.Location.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(op.Location.Longitude, 'f', -1, 64)
		}},
		{"RESULTADO", func(op *model.Operative, _ *time.Location) string {
			if op.Conclusion == nil {
				return placeholderNA
			}
			return op.Conclusion.Result.Label()
		}},
		{"DETENIDOS", func(op *model.Operative, _ *time.Location) string { return strconv.Itoa(detainees(op)) }},
		{"MOTIVO_O_DELITO", func(op *model.Operative, _ *time.Location) string {
			if c := op.Conclusion; c != nil {
				return or(or(c.DetentionReason, c.CrimeType), placeholderDash)
			}
			return placeholderDash
		}},
		{"COLONIAS_CUBIERTAS", func(op *model.Operative, _ *time.Location) string {
			if c := op.Conclusion; c != nil && len(c.ColoniesCovered) > 0 {
				return strings.Join(c.ColoniesCovered, "; ")
			}
			return op.Location.Colony
		}},
		{"T_PUBLICO", counter(func(c *model.Conclusion) int { return c.PublicTransportChecked })},
		{"PARTICULARES", counter(func(c *model.Conclusion) int { return c.PrivateVehiclesChecked })},
		{"MOTOCICLETAS", counter(func(c *model.Conclusion) int { return c.MotorcyclesChecked })},
		{"PERSONAS", counter(func(c *model.Conclusion) int { return c.PeopleChecked })},
		{"REPRESENTANTE_VECINAL", reunionText(func(r *model.ReunionDetails) string { return r.RepresentativeName }, placeholderDash)},
		{"TELEFONO_VECINAL", reunionText(func(r *model.ReunionDetails) string { return r.Phone }, placeholderDash)},
		{"PARTICIPANTES_VECINAL", func(op *model.Operative, _ *time.Location) string {
			if r := reunion(op); r != nil {
				return strconv.Itoa(r.ParticipantCount)
			}
			return "0"
		}},
		{"SOLICITUDES_VECINAL", reunionText(func(r *model.ReunionDetails) string { return r.Petitions }, placeholderDash)},
		{"DETALLE_UNIDADES_DSYPCI", func(op *model.Operative, _ *time.Location) string { return formatUnits(op.Units) }},
		{"DETALLE_APOYO_EXTERNO", func(op *model.Operative, _ *time.Location) string { return formatCorporations(op.Corporations) }},
	},
}

// AuditFlavor is the compact export reviewed per operational day.
var AuditFlavor = ReportFlavor{
	Name:       FlavorAudit,
	FilePrefix: "OPERATIVOS_AUDITORIA",
	CutoffHour: -1,
	Columns: []ReportColumn{
		{"ID", func(op *model.Operative, _ *time.Location) string { return op.ID }},
		{"TIPO", func(op *model.Operative, _ *time.Location) string { return op.Type }},
		{"ESTATUS DETALLADO", func(op *model.Operative, _ *time.Location) string {
			if op.Conclusion != nil {
				return op.Conclusion.Result.Label()
			}
			return or(op.SpecificType, placeholderPending)
		}},
		{"ESTATUS", func(op *model.Operative, _ *time.Location) string { return statusLabel(op.Status) }},
		{"FECHA", func(op *model.Operative, loc *time.Location) string { return op.StartedAt.In(loc).Format("02/01/2006") }},
		{"HORA INICIO", func(op *model.Operative, loc *time.Location) string { return op.StartedAt.In(loc).Format("15:04") }},
		{"HORA CIERRE", func(op *model.Operative, loc *time.Location) string { return closedAt(op, loc, placeholderTime) }},
		{"REGION", func(op *model.Operative, _ *time.Location) string { return op.Region }},
		{"CUADRANTE", func(op *model.Operative, _ *time.Location) string { return op.Quadrant }},
		{"COLONIA", func(op *model.Operative, _ *time.Location) string { return op.Location.Colony }},
		{"CALLE", func(op *model.Operative, _ *time.Location) string { return op.Location.Street }},
		{"COORDENADAS", func(op *model.Operative, _ *time.Location) string {
			return fmt.Sprintf("%.6f, %.6f", op.Location.Latitude, op.Location.Longitude)
		}},
		{"REPRESENTANTE", reunionText(func(r *model.ReunionDetails) string { return r.RepresentativeName }, "")},
		{"TELEFONO_REP", reunionText(func(r *model.ReunionDetails) string { return r.Phone }, "")},
		{"PARTICIPANTES", func(op *model.Operative, _ *time.Location) string {
			if r := reunion(op); r != nil && r.ParticipantCount > 0 {
				return strconv.Itoa(r.ParticipantCount)
			}
			return ""
		}},
		{"REVISIONES_PERSONAS", counter(func(c *model.Conclusion) int { return c.PeopleChecked })},
		{"REVISIONES_TRANSPORTE_PUBLICO", counter(func(c *model.Conclusion) int { return c.PublicTransportChecked })},
		{"REVISIONES_PARTICULARES", counter(func(c *model.Conclusion) int { return c.PrivateVehiclesChecked })},
		{"REVISIONES_MOTOCICLETAS", counter(func(c *model.Conclusion) int { return c.MotorcyclesChecked })},
		{"DETENIDOS", func(op *model.Operative, _ *time.Location) string { return strconv.Itoa(detainees(op)) }},
		{"PETICIONES_VECINALES", reunionText(func(r *model.ReunionDetails) string {
			return strings.ReplaceAll(r.Petitions, "\n", " ")
		}, "")},
	},
}

// ReportFlavors lists the built-in flavors by name.
var ReportFlavors = map[string]ReportFlavor{
	FlavorComplete: CompleteFlavor,
	FlavorAudit:    AuditFlavor,
}

// Headers returns the column headers of the flavor.
func (f ReportFlavor) Headers() []string {
	out := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		out[i] = c.Header
	}
	return out
}

// Select keeps the named columns in flavor order. An empty selection keeps
// every column.
func (f ReportFlavor) Select(headers []string) (ReportFlavor, error) {
	if len(headers) == 0 {
		return f, nil
	}
	want := make(map[string]bool, len(headers))
	for _, h := range headers {
		h = textnorm.Normalize(h)
		if h != "" {
			want[h] = true
		}
	}
	out := f
	out.Columns = nil
	for _, c := range f.Columns {
		if want[c.Header] {
			out.Columns = append(out.Columns, c)
			delete(want, c.Header)
		}
	}
	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for h := range want {
			unknown = append(unknown, h)
		}
		return f, invalid("columns", "unknown columns: "+strings.Join(unknown, ", "))
	}
	if len(out.Columns) == 0 {
		return f, invalid("columns", "no columns selected")
	}
	return out, nil
}

// ReportRequest selects the records and layout of an export. From and To are
// calendar dates, both inclusive.
type ReportRequest struct {
	From    time.Time
	To      time.Time
	Flavor  string
	Columns []string
	Format  ReportFormat
}

// ReportService renders operatives into flat exports.
type ReportService struct {
	operatives   *OperativeService
	policy       *VisibilityPolicy
	loc          *time.Location
	exportCutoff int
}

// NewReportService returns an exporter over the operatives visible to each user.
func NewReportService(operatives *OperativeService, policy *VisibilityPolicy, loc *time.Location, exportCutoffHour int) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		operatives:   operatives,
		policy:       policy,
		loc:          loc,
		exportCutoff: exportCutoffHour,
	}
}

func (s *ReportService) flavor(req ReportRequest) (ReportFlavor, error) {
	name := strings.ToLower(strings.TrimSpace(req.Flavor))
	if name == "" {
		name = FlavorComplete
	}
	f, ok := ReportFlavors[name]
	if !ok {
		return ReportFlavor{}, invalid("flavor", fmt.Sprintf("unknown flavor %q", req.Flavor))
	}
	if f.CutoffHour < 0 {
		f.CutoffHour = s.exportCutoff
	}
	return f.Select(req.Columns)
}

// Window returns the [start, end) instants covered by the request.
func (s *ReportService) Window(req ReportRequest) (time.Time, time.Time, error) {
	f, err := s.flavor(req)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end := s.window(f, req)
	return start, end, nil
}

func (s *ReportService) window(f ReportFlavor, req ReportRequest) (time.Time, time.Time) {
	from := req.From.In(s.loc)
	to := req.To.In(s.loc)
	start := time.Date(from.Year(), from.Month(), from.Day(), f.CutoffHour, 0, 0, 0, s.loc)
	end := time.Date(to.Year(), to.Month(), to.Day(), f.CutoffHour, 0, 0, 0, s.loc).AddDate(0, 0, 1)
	return start, end
}

// Rows builds the header and data rows of an export for user.
func (s *ReportService) Rows(ctx context.Context, user *model.User, req ReportRequest) ([][]string, error) {
	if user == nil || !user.Capabilities().ExportReports {
		return nil, ErrForbidden
	}
	if req.From.IsZero() || req.To.IsZero() {
		return nil, invalid("range", "from and to are required")
	}
	if req.To.Before(req.From) {
		return nil, invalid("range", "to precedes from")
	}
	f, err := s.flavor(req)
	if err != nil {
		return nil, err
	}

	ops, err := s.operatives.All(ctx)
	if err != nil {
		return nil, err
	}
	start, end := s.window(f, req)
	list := InRange(s.policy.Scope(user, ops), start, end)
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s to %s", ErrNoRecords, req.From.Format("2006-01-02"), req.To.Format("2006-01-02"))
	}

	rows := make([][]string, 0, len(list)+1)
	rows = append(rows, f.Headers())
	for i := range list {
		row := make([]string, len(f.Columns))
		for j, c := range f.Columns {
			row[j] = strings.TrimSpace(textnorm.StripDiacritics(c.Value(&list[i], s.loc)))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Export writes the report to w in the requested format.
func (s *ReportService) Export(ctx context.Context, user *model.User, req ReportRequest, w io.Writer) error {
	rows, err := s.Rows(ctx, user, req)
	if err != nil {
		return err
	}
	if req.Format == FormatXLSX {
		return writeReportXLSX(w, rows)
	}
	return writeQuotedCSV(w, rows)
}

// FileName is the download name of the report.
func (s *ReportService) FileName(req ReportRequest) string {
	prefix := CompleteFlavor.FilePrefix
	if f, ok := ReportFlavors[strings.ToLower(req.Flavor)]; ok {
		prefix = f.FilePrefix
	}
	ext := string(FormatCSV)
	if req.Format == FormatXLSX {
		ext = string(FormatXLSX)
	}
	return fmt.Sprintf("%s_%s_AL_%s.%s", prefix, req.From.Format("2006-01-02"), req.To.Format("2006-01-02"), ext)
}

const reportSheet = "OPERATIVOS"

func writeReportXLSX(w io.Writer, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", reportSheet)

	sw, err := f.NewStreamWriter(reportSheet)
	if err != nil {
		return err
	}
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := sw.SetRow(cell, cells); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}

// ReadReport parses an exported CSV into rows keyed by header.
func ReadReport(r io.Reader) ([]map[string]string, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0]
	out := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func or(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func statusLabel(s model.OperativeStatus) string {
	switch s {
	case model.StatusActive:
		return "ACTIVO"
	case model.StatusConcluded:
		return "CONCLUIDO"
	}
	return string(s)
}

func closedAt(op *model.Operative, loc *time.Location, placeholder string) string {
	if op.Conclusion == nil || op.Conclusion.ConcludedAt.IsZero() {
		return placeholder
	}
	return op.Conclusion.ConcludedAt.In(loc).Format("15:04")
}

func detainees(op *model.Operative) int {
	if op.Conclusion == nil || op.Conclusion.DetaineesCount == nil {
		return 0
	}
	return *op.Conclusion.DetaineesCount
}

func reunion(op *model.Operative) *model.ReunionDetails {
	if op.Conclusion == nil {
		return nil
	}
	return op.Conclusion.ReunionDetails
}

func counter(get func(c *model.Conclusion) int) func(*model.Operative, *time.Location) string {
	return func(op *model.Operative, _ *time.Location) string {
		if op.Conclusion == nil {
			return "0"
		}
		return strconv.Itoa(get(op.Conclusion))
	}
}

func reunionText(get func(r *model.ReunionDetails) string, placeholder string) func(*model.Operative, *time.Location) string {
	return func(op *model.Operative, _ *time.Location) string {
		if r := reunion(op); r != nil {
			return or(get(r), placeholder)
		}
		return placeholder
	}
}

func formatUnits(units []model.Unit) string {
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = fmt.Sprintf("[UNIDAD: %s - MANDO: %s (%s) - ELEMS: %d]", u.UnitNumber, u.InCharge, u.Rank, u.PersonnelCount)
	}
	return strings.Join(parts, " | ")
}

func formatCorporations(corps []model.Corporation) string {
	parts := make([]string, len(corps))
	for i, c := range corps {
		parts[i] = fmt.Sprintf("[CORP: %s - UNID: %s - MANDO: %s - UNIDS: %d - ELEMS: %d]",
			c.Name, or(c.UnitNumber, placeholderNA), or(c.InCharge, placeholderNA), c.UnitCount, c.PersonnelCount)
	}
	return strings.Join(parts, " | ")
}
