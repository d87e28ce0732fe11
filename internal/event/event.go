// Package event 定义实时事件及其发布方式
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type 事件类型
type Type string

const (
	TypeTaskUpdated  Type = "task:updated"
	TypeTaskDeleted  Type = "task:deleted"
	TypeCommentAdded Type = "comment:added"
	TypeNotification Type = "notification"
	TypeError        Type = "error"
)

// Event 实时事件
// UserID 为空时广播给所有连接,否则只发给该用户
type Event struct {
	Seq       uint64          `json:"seq,omitempty"`
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	TaskID    string          `json:"taskId,omitempty"`
	UserID    string          `json:"-"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

// New 创建事件并序列化数据
func New(typ Type, taskID, userID string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s event: %w", typ, err)
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		TaskID:    taskID,
		UserID:    userID,
		Data:      raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Encode 编码为推送给客户端的帧
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher 事件发布者
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc 函数形式的发布者
type PublisherFunc func(ctx context.Context, ev Event) error

// Publish 实现 Publisher
func (f PublisherFunc) Publish(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Nop 丢弃所有事件
var Nop Publisher = PublisherFunc(func(context.Context, Event) error { return nil })
