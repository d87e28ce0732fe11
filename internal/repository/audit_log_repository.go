package repository

import (
	"context"

	"github.com/mautops/taskflow-gin/internal/model"
	"gorm.io/gorm"
)

// AuditLogRepository 审计日志仓储接口
// 查询结果按时间倒序,limit <= 0 表示不限制
type AuditLogRepository interface {
	Save(ctx context.Context, log *model.AuditLogModel) error
	FindByUserID(ctx context.Context, userID string, limit int) ([]*model.AuditLogModel, error)
	FindByResource(ctx context.Context, resourceType, resourceID string, limit int) ([]*model.AuditLogModel, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志仓储
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Save 写入审计日志,日志只追加不更新
func (r *auditLogRepository) Save(ctx context.Context, log *model.AuditLogModel) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *auditLogRepository) FindByUserID(ctx context.Context, userID string, limit int) ([]*model.AuditLogModel, error) {
	return r.find(r.db.WithContext(ctx).Where("user_id = ?", userID), limit)
}

func (r *auditLogRepository) FindByResource(ctx context.Context, resourceType, resourceID string, limit int) ([]*model.AuditLogModel, error) {
	return r.find(r.db.WithContext(ctx).Where("resource_type = ? AND resource_id = ?", resourceType, resourceID), limit)
}

func (r *auditLogRepository) find(q *gorm.DB, limit int) ([]*model.AuditLogModel, error) {
	var logs []*model.AuditLogModel
	q = q.Order("created_at DESC").Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&logs).Error
	return logs, err
}
