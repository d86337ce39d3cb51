package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"patrolops/api/internal/middleware"
	"patrolops/api/internal/model"
	"patrolops/api/internal/service"
)

// ReplaceCatalogRequest 整体替换目录
type ReplaceCatalogRequest struct {
	Values []string `json:"values" binding:"required"`
}

// CatalogHandler 目录处理器
type CatalogHandler struct {
	catalogs *service.CatalogService
	logger   *zap.Logger
}

// NewCatalogHandler 创建目录处理器
func NewCatalogHandler(catalogs *service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalogs: catalogs, logger: logger}
}

// RegisterRoutes 注册路由
func (h *CatalogHandler) RegisterRoutes(r *gin.RouterGroup) {
	manage := middleware.RequireCapability(model.CapManageCatalogs)

	r.GET("/regions", h.ListRegions)

	catalogs := r.Group("/catalogs")
	{
		catalogs.GET("/:key", h.List)
		catalogs.POST("/:key", manage, h.Append)
		catalogs.PUT("/:key", manage, h.Replace)
		catalogs.DELETE("/:key/items", manage, h.Remove)
		catalogs.POST("/:key/reorder", manage, h.Reorder)
		catalogs.POST("/:key/sort", manage, h.Sort)
	}

	// 社区目录
	colonies := r.Group("/colonies")
	{
		colonies.GET("", h.ListColonies)
		colonies.POST("", manage, h.AppendColony)
		colonies.DELETE("", manage, h.RemoveColony)
		colonies.POST("/reorder", manage, h.ReorderColonies)
		colonies.POST("/sort", manage, h.SortColonies)
	}
}

func (h *CatalogHandler) catalogKey(c *gin.Context) (model.CatalogKey, bool) {
	key, err := model.ParseCatalogKey(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return "", false
	}
	return key, true
}

// ListRegions godoc
// @Summary 区域列表
// @Tags catalogs
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.RegionInfo
// @Router /regions [get]
func (h *CatalogHandler) ListRegions(c *gin.Context) {
	c.JSON(http.StatusOK, model.ListRegions())
}

// List godoc
// @Summary 目录内容
// @Tags catalogs
// @Produce json
// @Security BearerAuth
// @Param key path string true "Catalog name"
// @Success 200 {array} string
// @Failure 404 {object} map[string]string
// @Router /catalogs/{key} [get]
func (h *CatalogHandler) List(c *gin.Context) {
	key, ok := h.catalogKey(c)
	if !ok {
		return
	}
	list, err := h.catalogs.List(c.Request.Context(), key)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Append godoc
// @Summary 添加目录项
// @Tags catalogs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "Catalog name"
// @Param request body model.AppendCatalogRequest true "Value"
// @Success 200 {array} string
// @Failure 409 {object} map[string]string
// @Router /catalogs/{key} [post]
func (h *CatalogHandler) Append(c *gin.Context) {
	key, ok := h.catalogKey(c)
	if !ok {
		return
	}
	var req model.AppendCatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	list, err := h.catalogs.Append(c.Request.Context(), key, req.Value)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Replace godoc
// @Summary 替换目录
// @Tags catalogs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "Catalog name"
// @Param request body ReplaceCatalogRequest true "Values"
// @Success 200 {array} string
// @Router /catalogs/{key} [put]
func (h *CatalogHandler) Replace(c *gin.Context) {
	key, ok := h.catalogKey(c)
	if !ok {
		return
	}
	var req ReplaceCatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	list, err := h.catalogs.Replace(c.Request.Context(), key, req.Values)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Remove godoc
// @Summary 删除目录项
// @Tags catalogs
// @Produce json
// @Security BearerAuth
// @Param key path string true "Catalog name"
// @Param value query string true "Value to remove"
// @Success 200 {array} string
// @Failure 404 {object} map[string]string
// @Router /catalogs/{key}/items [delete]
func (h *CatalogHandler) Remove(c *gin.Context) {
	key, ok := h.catalogKey(c)
	if !ok {
		return
	}
	value := c.Query("value")
	if value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
		return
	}
	list, err := h.catalogs.Remove(c.Request.Context(), key, value)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Reorder godoc
// @Summary 移动目录项
// @Tags catalogs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "Catalog name"
// @Param request body model.ReorderCatalogRequest true "Index and direction"
// @Success 200 {array} string
// @Router /catalogs/{key}/reorder [post]
func (h *CatalogHandler) Reorder(c *gin.Context) {
	key, ok := h.catalogKey(c)
	if !ok {
		return
	}
	var req model.ReorderCatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	list, err := h.catalogs.Reorder(c.Request.Context(), key, req.Index, req.Direction)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Sort godoc
// @Summary 按字母排序
// @Tags catalogs
// @Produce json
// @Security BearerAuth
// @Param key path string true "Catalog name"
// @Success 200 {array} string
// @Router /catalogs/{key}/sort [post]
func (h *CatalogHandler) Sort(c *gin.Context) {
	key, ok := h.catalogKey(c)
	if !ok {
		return
	}
	list, err := h.catalogs.SortAlphabetically(c.Request.Context(), key)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListColonies godoc
// @Summary 社区列表
// @Description Without region returns every entry; with region returns that region's colony names
// @Tags catalogs
// @Produce json
// @Security BearerAuth
// @Param region query string false "Region"
// @Success 200 {array} model.CatalogEntry
// @Router /colonies [get]
func (h *CatalogHandler) ListColonies(c *gin.Context) {
	if region := c.Query("region"); region != "" {
		names, err := h.catalogs.ColoniesForRegion(c.Request.Context(), region)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, names)
		return
	}

	list, err := h.catalogs.ListColonies(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// AppendColony godoc
// @Summary 添加社区
// @Tags catalogs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.CatalogEntry true "Colony"
// @Success 200 {array} model.CatalogEntry
// @Failure 409 {object} map[string]string
// @Router /colonies [post]
func (h *CatalogHandler) AppendColony(c *gin.Context) {
	var entry model.CatalogEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		bindError(c, err)
		return
	}
	list, err := h.catalogs.AppendColony(c.Request.Context(), entry)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// RemoveColony godoc
// @Summary 删除社区
// @Tags catalogs
// @Produce json
// @Security BearerAuth
// @Param region query string true "Region"
// @Param colony query string true "Colony"
// @Success 200 {array} model.CatalogEntry
// @Failure 404 {object} map[string]string
// @Router /colonies [delete]
func (h *CatalogHandler) RemoveColony(c *gin.Context) {
	region, colony := c.Query("region"), c.Query("colony")
	if region == "" || colony == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region and colony are required"})
		return
	}
	list, err := h.catalogs.RemoveColony(c.Request.Context(), region, colony)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ReorderColonies godoc
// @Summary 移动社区
// @Tags catalogs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.ReorderCatalogRequest true "Index and direction"
// @Success 200 {array} model.CatalogEntry
// @Router /colonies/reorder [post]
func (h *CatalogHandler) ReorderColonies(c *gin.Context) {
	var req model.ReorderCatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	list, err := h.catalogs.ReorderColonies(c.Request.Context(), req.Index, req.Direction)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// SortColonies godoc
// @Summary 社区排序
// @Tags catalogs
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.CatalogEntry
// @Router /colonies/sort [post]
func (h *CatalogHandler) SortColonies(c *gin.Context) {
	list, err := h.catalogs.SortColonies(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
