package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/taskflow-gin/internal/auth"
	"github.com/mautops/taskflow-gin/internal/service"
)

// AuthController 认证控制器
type AuthController struct {
	authService service.AuthService
}

// NewAuthController 创建认证控制器
func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

// currentActor 读取认证中间件写入的用户,缺失时返回 401
func currentActor(ctx *gin.Context) (auth.Identity, bool) {
	id, ok := auth.CurrentIdentity(ctx)
	if !ok {
		writeAPIError(ctx, &APIError{Code: http.StatusUnauthorized, Message: T(ctx, "error.unauthorized")})
		return auth.Identity{}, false
	}
	return id, true
}

// Register 注册
// @Summary      注册用户
// @Description  创建账号并返回登录 token
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request body service.RegisterRequest true "注册信息"
// @Success      201  {object}  Response{data=service.AuthResponse}
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req service.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	resp, err := c.authService.Register(ctx.Request.Context(), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Created(ctx, resp)
}

// Login 登录
// @Summary      登录
// @Description  邮箱密码登录,rememberMe 为 true 时 token 有效期 30 天,否则 7 天
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request body service.LoginRequest true "登录信息"
// @Success      200  {object}  Response{data=service.AuthResponse}
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req service.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	resp, err := c.authService.Login(ctx.Request.Context(), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, resp)
}

// Logout 注销
// @Summary      注销
// @Description  吊销当前 token
// @Tags         认证
// @Produce      json
// @Success      200  {object}  Response
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/logout [post]
// @Security     BearerAuth
func (c *AuthController) Logout(ctx *gin.Context) {
	claims, ok := auth.CurrentClaims(ctx)
	if !ok {
		writeAPIError(ctx, &APIError{Code: http.StatusUnauthorized, Message: T(ctx, "error.unauthorized")})
		return
	}

	if err := c.authService.Logout(ctx.Request.Context(), claims); err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// Me 当前用户
// @Summary      当前用户
// @Tags         认证
// @Produce      json
// @Success      200  {object}  Response{data=service.User}
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /auth/me [get]
// @Security     BearerAuth
func (c *AuthController) Me(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	user, err := c.authService.CurrentUser(ctx.Request.Context(), actor.ID)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, user)
}

// Users 用户列表
// @Summary      用户列表
// @Description  经理查看全部用户,用于指派任务
// @Tags         用户
// @Produce      json
// @Success      200  {object}  Response{data=[]service.User}
// @Failure      403  {object}  ErrorResponse
// @Router       /users [get]
// @Security     BearerAuth
func (c *AuthController) Users(ctx *gin.Context) {
	users, err := c.authService.ListUsers(ctx.Request.Context())
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, users)
}
