package model

import (
	"errors"
	"time"
)

// StateHistoryModel 任务状态变化记录
// 每次状态变化一行,Version 为变化后的任务版本
type StateHistoryModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	TaskID       string    `gorm:"type:varchar(64);not null;index:idx_history_task_version,priority:1"`
	Version      int64     `gorm:"not null;index:idx_history_task_version,priority:2"`
	Week         string    `gorm:"type:varchar(10);index"` // YYYY-W##
	FromState    string    `gorm:"type:varchar(32)"`       // 新建时为空
	ToState      string    `gorm:"type:varchar(32);not null;index"`
	Reason       string    `gorm:"type:text"`
	OperatorID   string    `gorm:"type:varchar(64);not null"`
	OperatorRole string    `gorm:"type:varchar(16)"`
	ChangedAt    time.Time `gorm:"not null"`
}

// TableName 指定表名
func (StateHistoryModel) TableName() string {
	return "task_state_changes"
}

// Validate 校验记录
func (m *StateHistoryModel) Validate() error {
	switch {
	case m.ID == "" || m.TaskID == "":
		return errors.New("history ID and task ID are required")
	case m.ToState == "":
		return errors.New("target state is required")
	case m.FromState == m.ToState:
		return errors.New("state did not change")
	case m.OperatorID == "":
		return errors.New("operator is required")
	}
	return nil
}
