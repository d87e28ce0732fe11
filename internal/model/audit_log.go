package model

import (
	"errors"
	"time"
)

// AuditLogModel 审计日志
// 资源维度按 (resource_type, resource_id, created_at) 建复合索引
type AuditLogModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	UserID       string    `gorm:"type:varchar(64);not null;index:idx_audit_user_time,priority:1"`
	Action       string    `gorm:"type:varchar(32);not null"` // create/update/delete/submit/review/login/logout
	ResourceType string    `gorm:"type:varchar(16);not null;index:idx_audit_resource,priority:1"`
	ResourceID   string    `gorm:"type:varchar(64);not null;index:idx_audit_resource,priority:2"`
	RequestID    string    `gorm:"type:varchar(64);index"`
	IP           string    `gorm:"type:varchar(45)"`
	UserAgent    string    `gorm:"type:varchar(255)"`
	Details      []byte    `gorm:"type:text"` // JSON
	CreatedAt    time.Time `gorm:"not null;index:idx_audit_user_time,priority:2;index:idx_audit_resource,priority:3"`
}

// TableName 指定表名
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// Validate 校验必填字段
func (m *AuditLogModel) Validate() error {
	switch {
	case m.ID == "":
		return errors.New("audit log ID is required")
	case m.UserID == "":
		return errors.New("user ID is required")
	case m.Action == "":
		return errors.New("action is required")
	case m.ResourceType == "" || m.ResourceID == "":
		return errors.New("resource type and ID are required")
	}
	return nil
}
