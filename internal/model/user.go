package model

import (
	"errors"
	"time"
)

// UserModel 用户数据模型
type UserModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	Name         string    `gorm:"type:varchar(255);not null"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	Role         string    `gorm:"type:varchar(16);not null;index"` // employee/manager
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName 指定表名
func (UserModel) TableName() string {
	return "users"
}

// Validate 验证用户模型
func (um *UserModel) Validate() error {
	if um.ID == "" {
		return errors.New("user ID is required")
	}
	if um.Email == "" {
		return errors.New("user email is required")
	}
	if um.Role == "" {
		return errors.New("user role is required")
	}
	return nil
}
