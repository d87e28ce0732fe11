package repository

import (
	"context"

	"github.com/mautops/taskflow-gin/internal/model"
	"gorm.io/gorm"
)

// ReviewRecordRepository 审批记录仓储接口
type ReviewRecordRepository interface {
	Save(ctx context.Context, record *model.ReviewRecordModel) error
	FindByTaskID(ctx context.Context, taskID string) ([]*model.ReviewRecordModel, error)
	FindByReviewer(ctx context.Context, reviewerID string) ([]*model.ReviewRecordModel, error)
}

type reviewRecordRepository struct {
	db *gorm.DB
}

// NewReviewRecordRepository 创建审批记录仓储
func NewReviewRecordRepository(db *gorm.DB) ReviewRecordRepository {
	return &reviewRecordRepository{db: db}
}

func (r *reviewRecordRepository) Save(ctx context.Context, record *model.ReviewRecordModel) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// FindByTaskID 按时间正序返回任务的审批记录
func (r *reviewRecordRepository) FindByTaskID(ctx context.Context, taskID string) ([]*model.ReviewRecordModel, error) {
	var records []*model.ReviewRecordModel
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("created_at ASC").Find(&records).Error
	return records, err
}

// FindByReviewer 按时间倒序返回经理做出的审批记录
func (r *reviewRecordRepository) FindByReviewer(ctx context.Context, reviewerID string) ([]*model.ReviewRecordModel, error) {
	var records []*model.ReviewRecordModel
	err := r.db.WithContext(ctx).Where("reviewer_id = ?", reviewerID).Order("created_at DESC").Find(&records).Error
	return records, err
}
