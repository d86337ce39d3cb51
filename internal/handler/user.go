package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"patrolops/api/internal/middleware"
	"patrolops/api/internal/model"
	"patrolops/api/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// UserHandler 用户管理处理器
type UserHandler struct {
	users    *service.UserService
	importer *service.UserImportService
	logger   *zap.Logger
}

// NewUserHandler 创建用户管理处理器
func NewUserHandler(users *service.UserService, importer *service.UserImportService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, importer: importer, logger: logger}
}

// RegisterRoutes 注册路由
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	users.Use(middleware.RequireCapability(model.CapManageUsers))
	{
		users.GET("", h.List)
		users.POST("", h.Create)
		users.GET("/:id", h.Get)
		users.PUT("/:id", h.Update)
		users.DELETE("/:id", h.Delete)

		// 批量导入导出
		users.GET("/import-template", h.DownloadImportTemplate)
		users.POST("/import-preview", h.PreviewImport)
		users.POST("/import", h.Import)
		users.GET("/export", h.Export)
	}
}

// List godoc
// @Summary 用户列表
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": users,
		"total": len(users),
	})
}

// Get godoc
// @Summary 用户详情
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} model.User
// @Failure 404 {object} map[string]string
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Create godoc
// @Summary 创建用户
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.CreateUserRequest true "User"
// @Success 201 {object} model.User
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	user, err := h.users.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Update godoc
// @Summary 更新用户
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body model.UpdateUserRequest true "Changed fields"
// @Success 200 {object} model.User
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	var req model.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	user, err := h.users.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Delete godoc
// @Summary 删除用户
// @Tags users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if err := h.users.Delete(c.Request.Context(), actor.ID, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadImportTemplate 下载用户导入模板
// @Summary Download user import template
// @Tags users
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} binary
// @Failure 500 {object} map[string]string
// @Router /users/import-template [get]
func (h *UserHandler) DownloadImportTemplate(c *gin.Context) {
	buf, err := h.importer.GenerateImportTemplate()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=user_import_template.xlsx")
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// PreviewImport 预览导入数据
// @Summary Preview user import
// @Description Parse an import file without merging it
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV or Excel file"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /users/import-preview [post]
func (h *UserHandler) PreviewImport(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	records, err := h.importer.Parse(header.Filename, file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"header": model.UserImportHeader,
		"rows":   records,
		"total":  len(records),
	})
}

// Import 批量导入用户
// @Summary Import users
// @Description Merge a CSV or Excel file into the user store by ID, then username
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV or Excel file"
// @Success 200 {object} model.UserImportResult
// @Failure 400 {object} map[string]string
// @Router /users/import [post]
func (h *UserHandler) Import(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	result, err := h.importer.Import(c.Request.Context(), header.Filename, file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info("users imported",
		zap.String("file", header.Filename),
		zap.String("user_id", c.GetString(middleware.ContextUserID)),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("unchanged", result.Unchanged))
	c.JSON(http.StatusOK, result)
}

// Export 导出用户
// @Summary Export users
// @Description Export every user as CSV in the import format
// @Tags users
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /users/export [get]
func (h *UserHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.importer.ExportCSV(c.Request.Context(), &buf); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=USUARIOS.csv")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
