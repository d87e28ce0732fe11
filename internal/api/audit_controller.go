package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/mautops/taskflow-gin/internal/service"
)

// AuditController 审计日志控制器
type AuditController struct {
	auditLogService service.AuditLogService
}

// NewAuditController 创建审计日志控制器
func NewAuditController(auditLogService service.AuditLogService) *AuditController {
	return &AuditController{auditLogService: auditLogService}
}

// List 审计日志
// @Summary      审计日志
// @Description  按资源(resource_type + resource_id)或按用户(user_id)查询
// @Tags         审计
// @Produce      json
// @Param        resource_type query string false "资源类型,如 task"
// @Param        resource_id   query string false "资源 ID"
// @Param        user_id       query string false "用户 ID"
// @Success      200  {object}  Response{data=[]service.AuditLogEntry}
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /audit-logs [get]
// @Security     BearerAuth
func (c *AuditController) List(ctx *gin.Context) {
	var (
		logs []*service.AuditLogEntry
		err  error
	)

	resourceType, resourceID := ctx.Query("resource_type"), ctx.Query("resource_id")
	userID := ctx.Query("user_id")
	switch {
	case resourceType != "" && resourceID != "":
		logs, err = c.auditLogService.ListByResource(ctx.Request.Context(), resourceType, resourceID)
	case userID != "":
		logs, err = c.auditLogService.ListByUser(ctx.Request.Context(), userID)
	default:
		badRequest(ctx, errors.New("resource_type and resource_id, or user_id, is required"))
		return
	}
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, logs)
}
