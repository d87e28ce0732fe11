package model

import (
	"errors"
	"time"
)

// ReviewRecordModel 经理审批决定记录
type ReviewRecordModel struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)"`
	TaskID     string    `gorm:"type:varchar(64);not null;index"`
	BatchKey   string    `gorm:"type:varchar(128);not null;index"` // staffId@YYYY-W##
	ReviewerID string    `gorm:"type:varchar(64);not null;index"`
	Result     string    `gorm:"type:varchar(32);not null"` // approve/reject
	ToStatus   string    `gorm:"type:varchar(32);not null"`
	Comment    string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (ReviewRecordModel) TableName() string {
	return "review_records"
}

// Validate 验证审批记录模型
func (rm *ReviewRecordModel) Validate() error {
	if rm.ID == "" {
		return errors.New("record ID is required")
	}
	if rm.TaskID == "" {
		return errors.New("task ID is required")
	}
	if rm.Result == "" {
		return errors.New("review result is required")
	}
	return nil
}
