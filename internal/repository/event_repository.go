package repository

import (
	"context"
	"time"

	"github.com/mautops/taskflow-gin/internal/model"
	"gorm.io/gorm"
)

// EventRepository 实时事件仓储接口
type EventRepository interface {
	Save(ctx context.Context, event *model.EventModel) error
	FindSince(ctx context.Context, seq uint64, userID string, limit int) ([]*model.EventModel, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// eventRepository 事件仓储实现
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository 创建事件仓储
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Save 保存事件,Seq 由数据库分配
func (r *eventRepository) Save(ctx context.Context, event *model.EventModel) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// FindSince 返回 seq 之后的广播事件和发给 userID 的定向事件
func (r *eventRepository) FindSince(ctx context.Context, seq uint64, userID string, limit int) ([]*model.EventModel, error) {
	var events []*model.EventModel
	query := r.db.WithContext(ctx).
		Where("seq > ?", seq).
		Where("user_id = ? OR user_id = ?", "", userID).
		Order("seq ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&events).Error
	return events, err
}

// DeleteBefore 清理过期事件
func (r *eventRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&model.EventModel{})
	return result.RowsAffected, result.Error
}
