package repository

import (
	"context"

	"github.com/mautops/taskflow-gin/internal/model"
	"gorm.io/gorm"
)

// StateHistoryRepository 任务状态变化仓储
type StateHistoryRepository interface {
	Save(ctx context.Context, history *model.StateHistoryModel) error
	FindByTaskID(ctx context.Context, taskID string) ([]*model.StateHistoryModel, error)
	CountByTarget(ctx context.Context, week string) (map[string]int64, error)
}

type stateHistoryRepository struct {
	db *gorm.DB
}

// NewStateHistoryRepository 创建状态变化仓储
func NewStateHistoryRepository(db *gorm.DB) StateHistoryRepository {
	return &stateHistoryRepository{db: db}
}

func (r *stateHistoryRepository) Save(ctx context.Context, history *model.StateHistoryModel) error {
	return r.db.WithContext(ctx).Create(history).Error
}

// FindByTaskID 按任务版本顺序返回变化记录
func (r *stateHistoryRepository) FindByTaskID(ctx context.Context, taskID string) ([]*model.StateHistoryModel, error) {
	var histories []*model.StateHistoryModel
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("version ASC").
		Order("changed_at ASC").
		Find(&histories).Error
	return histories, err
}

// CountByTarget 统计进入各状态的次数,week 为空时统计全部
func (r *stateHistoryRepository) CountByTarget(ctx context.Context, week string) (map[string]int64, error) {
	var rows []struct {
		ToState string
		Count   int64
	}
	q := r.db.WithContext(ctx).Model(&model.StateHistoryModel{})
	if week != "" {
		q = q.Where("week = ?", week)
	}
	if err := q.Select("to_state, COUNT(*) AS count").Group("to_state").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.ToState] = row.Count
	}
	return out, nil
}
