package model

import (
	"errors"
	"time"
)

// TaskModel 任务数据模型
type TaskModel struct {
	ID               string     `gorm:"primaryKey;type:varchar(64)"`
	Title            string     `gorm:"type:varchar(255);not null"`
	Description      string     `gorm:"type:text"`
	Status           string     `gorm:"type:varchar(32);not null;index"` // 任务状态
	Priority         string     `gorm:"type:varchar(16);not null"`       // low/medium/high/urgent
	AssigneeID       string     `gorm:"type:varchar(64);index"`          // 负责人 ID
	AssigneeName     string     `gorm:"type:varchar(255)"`               // 负责人名称(冗余)
	DueDate          *string    `gorm:"type:varchar(10)"`                // YYYY-MM-DD
	WeekSubmittedFor string     `gorm:"type:varchar(8);index"`           // YYYY-W##
	EstimatedHours   *float64   `gorm:"type:decimal(6,2)"`
	IsDraft          bool       `gorm:"not null;default:false"`
	SubmittedAt      *time.Time `gorm:"index"` // 提交时间
	ReviewedAt       *time.Time
	ReviewedByID     string    `gorm:"type:varchar(64)"`
	ReviewComment    string    `gorm:"type:text"`
	StatusNote       string    `gorm:"type:text"`
	BatchID          string    `gorm:"type:varchar(64);index"` // 同批提交的任务共享
	CreatedByID      string    `gorm:"type:varchar(64);index"` // 创建人 ID
	Version          int       `gorm:"type:int;not null;default:1"`
	CreatedAt        time.Time `gorm:"not null;index;autoCreateTime:false"`
	UpdatedAt        time.Time `gorm:"not null;index;autoUpdateTime:false"` // 由存储层维护,保证严格递增
}

// TableName 指定表名
func (TaskModel) TableName() string {
	return "tasks"
}

// Validate 验证任务模型
func (tm *TaskModel) Validate() error {
	if tm.ID == "" {
		return errors.New("task ID is required")
	}
	if tm.Title == "" {
		return errors.New("task title is required")
	}
	if tm.Status == "" {
		return errors.New("task status is required")
	}
	return nil
}
