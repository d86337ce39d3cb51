package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"patrolops/api/internal/middleware"
	"patrolops/api/internal/model"
	"patrolops/api/internal/service"
)

// OperativeListQuery 列表查询参数
type OperativeListQuery struct {
	View  string `form:"view" binding:"omitempty,oneof=dashboard history"`
	Query string `form:"q"`
}

// OperativeHandler 行动处理器
type OperativeHandler struct {
	operatives *service.OperativeService
	logger     *zap.Logger
}

// NewOperativeHandler 创建行动处理器
func NewOperativeHandler(operatives *service.OperativeService, logger *zap.Logger) *OperativeHandler {
	return &OperativeHandler{operatives: operatives, logger: logger}
}

// RegisterRoutes 注册路由
func (h *OperativeHandler) RegisterRoutes(r *gin.RouterGroup) {
	operatives := r.Group("/operatives")
	{
		operatives.GET("", h.List)
		operatives.POST("", h.Create)
		operatives.GET("/:id", h.Get)
		operatives.POST("/:id/conclude", h.Conclude)
		operatives.DELETE("/:id", middleware.RequireCapability(model.CapDeleteOperatives), h.Delete)
	}
}

// List godoc
// @Summary 行动列表
// @Description Dashboard view returns the current shift; history view returns everything in scope
// @Tags operatives
// @Produce json
// @Security BearerAuth
// @Param view query string false "dashboard or history"
// @Param q query string false "Search text"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Router /operatives [get]
func (h *OperativeHandler) List(c *gin.Context) {
	var query OperativeListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindError(c, err)
		return
	}
	view := service.ViewDashboard
	if query.View != "" {
		view = service.View(query.View)
	}

	ops, err := h.operatives.List(c.Request.Context(), middleware.CurrentUser(c), view, query.Query)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": ops,
		"total": len(ops),
	})
}

// Create godoc
// @Summary 创建行动
// @Tags operatives
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.CreateOperativeRequest true "Operative"
// @Success 201 {object} model.Operative
// @Failure 400 {object} map[string]interface{}
// @Router /operatives [post]
func (h *OperativeHandler) Create(c *gin.Context) {
	var req model.CreateOperativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	op, err := h.operatives.Create(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, op)
}

// Get godoc
// @Summary 行动详情
// @Tags operatives
// @Produce json
// @Security BearerAuth
// @Param id path string true "Operative ID"
// @Success 200 {object} model.Operative
// @Failure 404 {object} map[string]string
// @Router /operatives/{id} [get]
func (h *OperativeHandler) Get(c *gin.Context) {
	op, err := h.operatives.Get(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, op)
}

// Conclude godoc
// @Summary 结束行动
// @Tags operatives
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Operative ID"
// @Param request body model.ConcludeOperativeRequest true "Closing report"
// @Success 200 {object} model.Operative
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /operatives/{id}/conclude [post]
func (h *OperativeHandler) Conclude(c *gin.Context) {
	var req model.ConcludeOperativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	op, err := h.operatives.Conclude(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, op)
}

// Delete godoc
// @Summary 删除行动
// @Tags operatives
// @Security BearerAuth
// @Param id path string true "Operative ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /operatives/{id} [delete]
func (h *OperativeHandler) Delete(c *gin.Context) {
	if err := h.operatives.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
