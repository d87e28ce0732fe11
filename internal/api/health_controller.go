package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthController 健康检查控制器
type HealthController struct {
	db      *gorm.DB
	clients func() int
}

// NewHealthController 创建健康检查控制器
// clients 返回当前实时连接数,可以为空
func NewHealthController(db *gorm.DB, clients func() int) *HealthController {
	return &HealthController{
		db:      db,
		clients: clients,
	}
}

// Check 健康检查
// @Summary      健康检查
// @Description  检查数据库连接
// @Tags         系统
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (c *HealthController) Check(ctx *gin.Context) {
	status := "healthy"
	checks := make(map[string]string)

	// 检查数据库连接
	if c.db != nil {
		if err := c.checkDatabase(ctx.Request.Context()); err != nil {
			status = "unhealthy"
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
	}

	body := gin.H{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	}
	if c.clients != nil {
		body["realtime_clients"] = c.clients()
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}
	ctx.JSON(httpStatus, body)
}

// checkDatabase 检查数据库连接
func (c *HealthController) checkDatabase(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx)
}
