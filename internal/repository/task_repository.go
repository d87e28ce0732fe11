package repository

import (
	"context"

	"github.com/mautops/taskflow-gin/internal/model"
	"gorm.io/gorm"
)

// TaskRepository 任务仓储接口
type TaskRepository interface {
	Save(ctx context.Context, task *model.TaskModel) error
	SaveAll(ctx context.Context, tasks []*model.TaskModel) error
	FindByID(ctx context.Context, id string) (*model.TaskModel, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.TaskModel, error)
	FindByFilter(ctx context.Context, filter *TaskFilter) ([]*model.TaskModel, error)
	Delete(ctx context.Context, id string) (bool, error)
	Transaction(ctx context.Context, fn func(repo TaskRepository) error) error
}

// TaskFilter 任务查询过滤器
type TaskFilter struct {
	Status     *string
	AssigneeID *string
	Week       *string
	BatchID    *string
	IsDraft    *bool
}

// taskRepository 任务仓储实现
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓储
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Save 保存任务
func (r *taskRepository) Save(ctx context.Context, task *model.TaskModel) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// SaveAll 在一条语句内保存多个任务
func (r *taskRepository) SaveAll(ctx context.Context, tasks []*model.TaskModel) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(&tasks).Error
}

// FindByID 根据 ID 查找任务
func (r *taskRepository) FindByID(ctx context.Context, id string) (*model.TaskModel, error) {
	var task model.TaskModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByIDs 根据 ID 列表查找任务,不存在的 ID 不会报错
func (r *taskRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.TaskModel, error) {
	var tasks []*model.TaskModel
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tasks).Error
	return tasks, err
}

// FindByFilter 根据过滤器查找任务
func (r *taskRepository) FindByFilter(ctx context.Context, filter *TaskFilter) ([]*model.TaskModel, error) {
	var tasks []*model.TaskModel
	query := r.db.WithContext(ctx).Model(&model.TaskModel{})

	if filter != nil {
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.AssigneeID != nil {
			query = query.Where("assignee_id = ?", *filter.AssigneeID)
		}
		if filter.Week != nil {
			query = query.Where("week_submitted_for = ?", *filter.Week)
		}
		if filter.BatchID != nil {
			query = query.Where("batch_id = ?", *filter.BatchID)
		}
		if filter.IsDraft != nil {
			query = query.Where("is_draft = ?", *filter.IsDraft)
		}
	}

	err := query.Order("created_at DESC").Order("id ASC").Find(&tasks).Error
	return tasks, err
}

// Delete 删除任务,返回是否有记录被删除
func (r *taskRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.TaskModel{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Transaction 在事务中执行 fn,fn 返回错误时回滚
func (r *taskRepository) Transaction(ctx context.Context, fn func(repo TaskRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&taskRepository{db: tx})
	})
}
