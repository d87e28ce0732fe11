package websocket

import (
	"context"
	"sync"

	"github.com/mautops/taskflow-gin/internal/event"
	"github.com/mautops/taskflow-gin/internal/metrics"
	"github.com/sirupsen/logrus"
)

// directMessage 发给单个用户的消息
type directMessage struct {
	userID  string
	message []byte
}

// clientMessage 发给单个连接的消息
type clientMessage struct {
	client  *Client
	message []byte
}

// Hub 管理所有 WebSocket 连接
// clients 只在 Run 所在的 goroutine 中修改
type Hub struct {
	// 已注册的客户端
	clients map[*Client]bool

	// 广播消息到所有客户端
	Broadcast chan []byte

	// 注册新客户端
	Register chan *Client

	// 注销客户端
	Unregister chan *Client

	direct  chan directMessage
	unicast chan clientMessage
	done    chan struct{}
	once    sync.Once

	// 客户端数量快照,供 GetClientCount 读取
	mu    sync.RWMutex
	count int
	ids   map[string]bool

	logger *logrus.Logger
}

// NewHub 创建新的 Hub
func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		direct:     make(chan directMessage, 64),
		unicast:    make(chan clientMessage, 64),
		done:       make(chan struct{}),
		ids:        make(map[string]bool),
		logger:     logger,
	}
}

// Run 运行 Hub,直到 Stop 被调用
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.Register:
			h.clients[client] = true
			h.snapshot()

		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}

		case message := <-h.Broadcast:
			for client := range h.clients {
				h.send(client, message)
			}

		case cm := <-h.unicast:
			if h.clients[cm.client] {
				h.send(cm.client, cm.message)
			}

		case dm := <-h.direct:
			for client := range h.clients {
				if client.UserID == dm.userID {
					h.send(client, dm.message)
				}
			}
		}
	}
}

// Stop 停止 Hub 并关闭所有连接
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
}

// send 非阻塞发送,缓冲区满的客户端被断开
func (h *Hub) send(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		h.logger.WithField("client_id", client.ID).Warn("Dropping slow websocket client")
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.snapshot()
}

func (h *Hub) snapshot() {
	ids := make(map[string]bool, len(h.clients))
	for client := range h.clients {
		ids[client.ID] = true
	}
	h.mu.Lock()
	h.count = len(h.clients)
	h.ids = ids
	h.mu.Unlock()
	metrics.SetWebsocketConnections(len(ids))
}

// BroadcastToUser 向特定用户广播消息
func (h *Hub) BroadcastToUser(userID string, message []byte) {
	select {
	case h.direct <- directMessage{userID: userID, message: message}:
	case <-h.done:
	}
}

// SendToClient 向单个连接发送消息,连接已注销时丢弃
func (h *Hub) SendToClient(client *Client, message []byte) {
	select {
	case h.unicast <- clientMessage{client: client, message: message}:
	case <-h.done:
	}
}

// register 注册客户端,Hub 已停止时返回 false
func (h *Hub) register(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Publish 实现 event.Publisher,定向事件只发给目标用户
func (h *Hub) Publish(ctx context.Context, ev event.Event) error {
	frame, err := ev.Encode()
	if err != nil {
		return err
	}
	if ev.UserID != "" {
		h.BroadcastToUser(ev.UserID, frame)
		return nil
	}
	select {
	case h.Broadcast <- frame:
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// HasClient 检查客户端是否存在
func (h *Hub) HasClient(clientID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ids[clientID]
}

// GetClientCount 获取客户端数量
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
