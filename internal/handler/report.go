package handler

import (
	"bytes"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"patrolops/api/internal/middleware"
	"patrolops/api/internal/model"
	"patrolops/api/internal/service"
)

const dateLayout = "2006-01-02"

// ReportQuery 报表查询参数
type ReportQuery struct {
	From    string `form:"from" binding:"required"`
	To      string `form:"to" binding:"required"`
	Flavor  string `form:"flavor"`
	Format  string `form:"format"`
	Columns string `form:"columns"`
}

// ReportHandler 报表处理器
type ReportHandler struct {
	reports *service.ReportService
	loc     *time.Location
	logger  *zap.Logger
}

// NewReportHandler 创建报表处理器
func NewReportHandler(reports *service.ReportService, loc *time.Location, logger *zap.Logger) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{reports: reports, loc: loc, logger: logger}
}

// RegisterRoutes 注册路由
func (h *ReportHandler) RegisterRoutes(r *gin.RouterGroup) {
	reports := r.Group("/reports")
	reports.Use(middleware.RequireCapability(model.CapExportReports))
	{
		reports.GET("/flavors", h.ListFlavors)
		reports.GET("/operatives", h.ExportOperatives)
	}
}

// ListFlavors godoc
// @Summary 报表格式
// @Description List the report flavors and their columns
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string][]string
// @Router /reports/flavors [get]
func (h *ReportHandler) ListFlavors(c *gin.Context) {
	names := make([]string, 0, len(service.ReportFlavors))
	for name := range service.ReportFlavors {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(gin.H, len(names))
	for _, name := range names {
		out[name] = service.ReportFlavors[name].Headers()
	}
	c.JSON(http.StatusOK, out)
}

// ExportOperatives godoc
// @Summary 导出行动报表
// @Description Export the operatives of a date range as CSV or XLSX
// @Tags reports
// @Produce text/csv
// @Security BearerAuth
// @Param from query string true "First day (YYYY-MM-DD)"
// @Param to query string true "Last day (YYYY-MM-DD)"
// @Param flavor query string false "complete or audit"
// @Param format query string false "csv or xlsx"
// @Param columns query string false "Comma separated column headers"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /reports/operatives [get]
func (h *ReportHandler) ExportOperatives(c *gin.Context) {
	var query ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindError(c, err)
		return
	}

	req, err := h.parseRequest(query)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := h.reports.Export(c.Request.Context(), middleware.CurrentUser(c), req, &buf); err != nil {
		respondError(c, h.logger, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if req.Format == service.FormatXLSX {
		contentType = xlsxContentType
	}
	c.Header("Content-Disposition", "attachment; filename="+h.reports.FileName(req))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ReportHandler) parseRequest(q ReportQuery) (service.ReportRequest, error) {
	from, err := time.ParseInLocation(dateLayout, q.From, h.loc)
	if err != nil {
		return service.ReportRequest{}, &service.ValidationError{Fields: map[string]string{"from": "expected YYYY-MM-DD"}}
	}
	to, err := time.ParseInLocation(dateLayout, q.To, h.loc)
	if err != nil {
		return service.ReportRequest{}, &service.ValidationError{Fields: map[string]string{"to": "expected YYYY-MM-DD"}}
	}
	format, err := service.ParseReportFormat(q.Format)
	if err != nil {
		return service.ReportRequest{}, &service.ValidationError{Fields: map[string]string{"format": err.Error()}}
	}

	var columns []string
	for _, col := range strings.Split(q.Columns, ",") {
		if col = strings.TrimSpace(col); col != "" {
			columns = append(columns, col)
		}
	}
	return service.ReportRequest{
		From:    from,
		To:      to,
		Flavor:  q.Flavor,
		Columns: columns,
		Format:  format,
	}, nil
}
