package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mautops/taskflow-gin/internal/task"
)

const (
	identityKey = "identity"
	claimsKey   = "claims"
)

// Middleware JWT 认证中间件
// token 来自 Authorization 头,WebSocket 握手时也可以使用 token 查询参数
func Middleware(tm *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "missing authorization header",
			})
			return
		}

		claims, err := tm.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "invalid token",
				"detail":  err.Error(),
			})
			return
		}

		id := claims.Identity()
		// 将用户信息存储到上下文
		c.Set(identityKey, id)
		c.Set(claimsKey, claims)
		c.Set("user_id", id.ID)
		c.Set("role", string(id.Role))

		c.Next()
	}
}

// RequireRole 限制只有指定角色可以访问
func RequireRole(role task.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok || id.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "forbidden",
				"detail":  "requires role " + string(role),
			})
			return
		}
		c.Next()
	}
}

// CurrentIdentity 返回当前请求的用户
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// CurrentClaims 返回当前请求的 token 声明
func CurrentClaims(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}
