package repository

import (
	"context"

	"github.com/mautops/taskflow-gin/internal/model"
	"gorm.io/gorm"
)

// CommentRepository 任务评论仓储接口
type CommentRepository interface {
	Save(ctx context.Context, comment *model.CommentModel) error
	FindByTaskID(ctx context.Context, taskID string) ([]*model.CommentModel, error)
	DeleteByTaskID(ctx context.Context, taskID string) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository 创建评论仓储
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Save(ctx context.Context, comment *model.CommentModel) error {
	return r.db.WithContext(ctx).Save(comment).Error
}

// FindByTaskID 按时间正序返回任务评论
func (r *commentRepository) FindByTaskID(ctx context.Context, taskID string) ([]*model.CommentModel, error) {
	var comments []*model.CommentModel
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("created_at ASC").Find(&comments).Error
	return comments, err
}

// DeleteByTaskID 删除任务的全部评论
func (r *commentRepository) DeleteByTaskID(ctx context.Context, taskID string) error {
	return r.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&model.CommentModel{}).Error
}
