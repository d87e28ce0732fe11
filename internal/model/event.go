package model

import (
	"errors"
	"time"
)

// EventModel 实时事件数据模型
// 客户端断线重连后按 ID 顺序补拉错过的事件
type EventModel struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement"`
	ID        string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	TaskID    string    `gorm:"type:varchar(64);index"`
	UserID    string    `gorm:"type:varchar(64);index"`          // 定向通知的接收人,为空表示广播
	Type      string    `gorm:"type:varchar(32);not null;index"` // task:updated/task:deleted/comment:added/notification
	Data      []byte    `gorm:"type:text;not null"`              // 序列化后的事件数据
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (EventModel) TableName() string {
	return "events"
}

// Validate 验证事件模型
func (em *EventModel) Validate() error {
	if em.ID == "" {
		return errors.New("event ID is required")
	}
	if em.Type == "" {
		return errors.New("event type is required")
	}
	if len(em.Data) == 0 {
		return errors.New("event data is required")
	}
	return nil
}
