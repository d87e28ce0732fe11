package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mautops/taskflow-gin/internal/auth"
	"github.com/mautops/taskflow-gin/internal/event"
	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/sirupsen/logrus"
)

const (
	// 写超时时间
	writeWait = 10 * time.Second

	// 读超时时间
	pongWait = 60 * time.Second

	// ping 周期 (必须小于 pongWait)
	pingPeriod = (pongWait * 9) / 10

	// 最大消息大小
	maxMessageSize = 64 * 1024
)

// RemoteUpdater 合并客户端推送的任务更新
type RemoteUpdater interface {
	ApplyRemoteUpdate(ctx context.Context, actor auth.Identity, taskID string, updates task.Updates) (*task.Task, error)
}

// InboundMessage 客户端发来的帧
type InboundMessage struct {
	Type event.Type      `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TaskUpdatePayload task:updated 帧的数据
// 实时通道后写入者生效,帧中携带的版本号会被忽略
type TaskUpdatePayload struct {
	TaskID  string       `json:"taskId"`
	Updates task.Updates `json:"updates"`
}

// Client WebSocket 客户端
type Client struct {
	// ID 客户端 ID
	ID string

	// UserID 用户 ID
	UserID string

	// Identity 连接所属用户
	Identity auth.Identity

	// Hub Hub 实例
	Hub *Hub

	// Conn WebSocket 连接
	Conn *websocket.Conn

	// Send 发送消息的 channel
	Send chan []byte

	updater RemoteUpdater
	logger  *logrus.Logger
}

// NewClient 创建新的客户端
func NewClient(id string, identity auth.Identity, hub *Hub, conn *websocket.Conn, updater RemoteUpdater) *Client {
	return &Client{
		ID:       id,
		UserID:   identity.ID,
		Identity: identity,
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		updater:  updater,
		logger:   hub.logger,
	}
}

// ReadPump 从 WebSocket 连接读取消息
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).WithField("client_id", c.ID).Warn("Websocket read error")
			}
			break
		}
		c.handle(data)
	}
}

// handle 处理单个入站帧,错误以 error 事件回给发送方
func (c *Client) handle(data []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply(event.TypeError, map[string]string{"message": "malformed message"})
		return
	}

	switch msg.Type {
	case event.TypeTaskUpdated:
		var payload TaskUpdatePayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.TaskID == "" {
			c.reply(event.TypeError, map[string]string{"message": "malformed task update"})
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		if _, err := c.updater.ApplyRemoteUpdate(ctx, c.Identity, payload.TaskID, payload.Updates); err != nil {
			c.reply(event.TypeError, map[string]string{"message": err.Error(), "taskId": payload.TaskID})
		}
	default:
		c.reply(event.TypeError, map[string]string{"message": "unsupported message type: " + string(msg.Type)})
	}
}

func (c *Client) reply(typ event.Type, data interface{}) {
	ev, err := event.New(typ, "", c.UserID, data)
	if err != nil {
		return
	}
	frame, err := ev.Encode()
	if err != nil {
		return
	}
	c.Hub.SendToClient(c, frame)
}

// WritePump 向 WebSocket 连接写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了 channel
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// 每个事件单独成帧,客户端按 JSON 解析
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
