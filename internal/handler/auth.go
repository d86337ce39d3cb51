package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"patrolops/api/internal/middleware"
	"patrolops/api/internal/model"
	"patrolops/api/internal/service"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	auth   *service.AuthService
	users  *service.UserService
	logger *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(auth *service.AuthService, users *service.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, logger: logger}
}

// RegisterPublicRoutes registers the routes reachable without a session.
func (h *AuthHandler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
}

// RegisterRoutes 注册路由
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.GET("/me", h.GetMe)
		auth.POST("/logout", h.Logout)
		auth.PUT("/password", h.ChangePassword)
	}
}

// Login godoc
// @Summary 用户登录
// @Description Authenticate with username and password and receive a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Credentials"
// @Success 200 {object} model.LoginResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetMe godoc
// @Summary 当前用户
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} map[string]string
// @Router /auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"capabilities": user.Capabilities(),
	})
}

// Logout godoc
// @Summary 退出登录
// @Description Revoke the current bearer token
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} map[string]string
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.CurrentClaims(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangePassword godoc
// @Summary 修改密码
// @Tags auth
// @Accept json
// @Security BearerAuth
// @Param request body model.ChangePasswordRequest true "New password"
// @Success 204
// @Failure 400 {object} map[string]string
// @Router /auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req model.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	if err := h.users.ChangePassword(c.Request.Context(), user.ID, req.Password); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
