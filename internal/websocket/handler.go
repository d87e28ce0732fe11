package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/mautops/taskflow-gin/internal/auth"
)

// NewUpgrader 创建升级器,allowedOrigins 含 "*" 时不检查 Origin
func NewUpgrader(allowedOrigins []string) gorillaWS.Upgrader {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return gorillaWS.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return allowAll || origin == "" || allowed[origin]
		},
	}
}

// WebSocketHandler WebSocket 处理器
// 需要在 auth.Middleware 之后挂载,token 通过查询参数传递
func WebSocketHandler(hub *Hub, updater RemoteUpdater, upgrader gorillaWS.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 读取认证后的用户
		identity, ok := auth.CurrentIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "missing token"})
			return
		}

		// 2. 升级连接
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade 已写入错误响应
			return
		}

		// 3. 创建并注册客户端
		client := NewClient(uuid.NewString(), identity, hub, conn, updater)
		if !hub.register(client) {
			conn.Close()
			return
		}

		// 4. 启动 readPump 和 writePump
		go client.WritePump()
		go client.ReadPump()
	}
}
