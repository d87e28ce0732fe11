package repository

import (
	"context"

	"github.com/mautops/taskflow-gin/internal/model"
	"gorm.io/gorm"
)

// UserRepository 用户仓储接口
type UserRepository interface {
	Save(ctx context.Context, user *model.UserModel) error
	FindByID(ctx context.Context, id string) (*model.UserModel, error)
	FindByEmail(ctx context.Context, email string) (*model.UserModel, error)
	FindAll(ctx context.Context) ([]*model.UserModel, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Save(ctx context.Context, user *model.UserModel) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.UserModel, error) {
	var user model.UserModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail 根据邮箱查找用户,邮箱比较不区分大小写
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.UserModel, error) {
	var user model.UserModel
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindAll(ctx context.Context) ([]*model.UserModel, error) {
	var users []*model.UserModel
	err := r.db.WithContext(ctx).Order("name ASC").Find(&users).Error
	return users, err
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.UserModel{}).Count(&n).Error
	return n, err
}
