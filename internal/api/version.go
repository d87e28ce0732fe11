package api

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
)

// 构建信息,发布时通过 -ldflags "-X" 注入
var (
	Version = "dev"
	Commit  = "unknown"
)

// APIVersion 当前唯一支持的接口版本
const APIVersion = "v1"

// VersionInfo 版本信息
type VersionInfo struct {
	Service    string `json:"service" example:"taskflow-gin"`
	Version    string `json:"version" example:"1.0.0"`
	Commit     string `json:"commit" example:"abc1234"`
	APIVersion string `json:"apiVersion" example:"v1"`
	GoVersion  string `json:"goVersion" example:"go1.23.0"`
}

// VersionMiddleware API 版本中间件
// 请求头 API-Version 指定了不支持的版本时返回 400
func VersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		version := APIVersion
		if requested := c.GetHeader("API-Version"); requested != "" {
			if requested != APIVersion {
				c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
					Code:    http.StatusBadRequest,
					Message: T(c, "error.bad_request"),
					Detail:  "unsupported API-Version " + requested,
				})
				return
			}
			version = requested
		}

		c.Header("X-API-Version", version)
		c.Set("api_version", version)
		c.Next()
	}
}

// GetAPIVersion 从上下文获取 API 版本
func GetAPIVersion(c *gin.Context) string {
	if version, exists := c.Get("api_version"); exists {
		if v, ok := version.(string); ok {
			return v
		}
	}
	return APIVersion
}

// VersionHandler 返回服务版本
// @Summary      服务版本
// @Tags         系统
// @Produce      json
// @Success      200  {object}  Response{data=VersionInfo}
// @Router       /version [get]
func VersionHandler(c *gin.Context) {
	Success(c, VersionInfo{
		Service:    ServiceName,
		Version:    Version,
		Commit:     Commit,
		APIVersion: GetAPIVersion(c),
		GoVersion:  runtime.Version(),
	})
}
