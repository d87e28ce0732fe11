package model

import (
	"errors"
	"time"
)

// CommentModel 任务评论数据模型
type CommentModel struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)"`
	TaskID     string    `gorm:"type:varchar(64);not null;index"`
	AuthorID   string    `gorm:"type:varchar(64);not null"`
	AuthorName string    `gorm:"type:varchar(255)"`
	Body       string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (CommentModel) TableName() string {
	return "task_comments"
}

// Validate 验证评论模型
func (cm *CommentModel) Validate() error {
	if cm.ID == "" {
		return errors.New("comment ID is required")
	}
	if cm.TaskID == "" {
		return errors.New("task ID is required")
	}
	if cm.Body == "" {
		return errors.New("comment body is required")
	}
	return nil
}
