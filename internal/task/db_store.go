package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mautops/taskflow-gin/internal/model"
	"github.com/mautops/taskflow-gin/internal/repository"
	"github.com/mautops/taskflow-gin/internal/week"
	"gorm.io/gorm"
)

// DBStore 基于数据库的任务存储
type DBStore struct {
	repo  repository.TaskRepository
	clock week.Clock
}

// NewDBStore 创建数据库任务存储
func NewDBStore(repo repository.TaskRepository, clock week.Clock) *DBStore {
	if clock == nil {
		clock = time.Now
	}
	return &DBStore{repo: repo, clock: clock}
}

// Create 创建任务
func (s *DBStore) Create(ctx context.Context, in CreateInput) (*Task, error) {
	t := newTask(in, s.now(), NewBatchID())
	if err := s.repo.Save(ctx, ToModel(t)); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	return t, nil
}

// Get 获取任务
func (s *DBStore) Get(ctx context.Context, id string) (*Task, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return FromModel(m)
}

// List 按创建时间倒序列出任务
func (s *DBStore) List(ctx context.Context, filter *Filter) ([]*Task, error) {
	models, err := s.repo.FindByFilter(ctx, toRepoFilter(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return fromModels(models)
}

// Update 在事务内读取、合并并写回任务
func (s *DBStore) Update(ctx context.Context, id string, updates Updates) (*Task, error) {
	var out *Task
	err := s.repo.Transaction(ctx, func(repo repository.TaskRepository) error {
		m, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFound(err, id)
		}
		t, err := FromModel(m)
		if err != nil {
			return err
		}
		applyUpdates(t, updates, s.now())
		if err := repo.Save(ctx, ToModel(t)); err != nil {
			return fmt.Errorf("failed to save task: %w", err)
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete 删除任务
func (s *DBStore) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return nil
}

// SubmitBatch 在单个事务内提交一批任务,任一任务不存在则整体回滚
func (s *DBStore) SubmitBatch(ctx context.Context, ids []string, w week.Week) ([]*Task, error) {
	// 同一主键在一条 upsert 中出现两次会整体失败
	ids = UniqueIDs(ids)
	if len(ids) == 0 {
		return nil, ErrEmptyBatch
	}

	var out []*Task
	err := s.repo.Transaction(ctx, func(repo repository.TaskRepository) error {
		models, err := repo.FindByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to load tasks: %w", err)
		}
		byID := make(map[string]*model.TaskModel, len(models))
		for _, m := range models {
			byID[m.ID] = m
		}

		now := s.now()
		updates := submitUpdates(w, NewBatchID(), now)
		out = make([]*Task, 0, len(ids))
		saved := make([]*model.TaskModel, 0, len(ids))
		for _, id := range ids {
			m, ok := byID[id]
			if !ok {
				return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
			}
			t, err := FromModel(m)
			if err != nil {
				return err
			}
			applyUpdates(t, updates, now)
			out = append(out, t)
			saved = append(saved, ToModel(t))
		}
		return repo.SaveAll(ctx, saved)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBulk 批量创建并提交任务
func (s *DBStore) CreateBulk(ctx context.Context, w week.Week, inputs []CreateInput) ([]*Task, error) {
	return s.createMany(ctx, withWeek(inputs, w, false))
}

// SaveBulkDrafts 批量保存草稿
func (s *DBStore) SaveBulkDrafts(ctx context.Context, w week.Week, inputs []CreateInput) ([]*Task, error) {
	return s.createMany(ctx, withWeek(inputs, w, true))
}

// ApplyRemote 合并实时通道推送的更新
func (s *DBStore) ApplyRemote(ctx context.Context, id string, updates Updates) (*Task, error) {
	return s.Update(ctx, id, updates)
}

func (s *DBStore) createMany(ctx context.Context, inputs []CreateInput) ([]*Task, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyBatch
	}
	now := s.now()
	batchID := NewBatchID()
	out := make([]*Task, 0, len(inputs))
	models := make([]*model.TaskModel, 0, len(inputs))
	for _, in := range inputs {
		t := newTask(in, now, batchID)
		out = append(out, t)
		models = append(models, ToModel(t))
	}
	if err := s.repo.SaveAll(ctx, models); err != nil {
		return nil, fmt.Errorf("failed to save tasks: %w", err)
	}
	return out, nil
}

// now 截断到微秒,与数据库时间精度一致
func (s *DBStore) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

func applyUpdates(t *Task, updates Updates, now time.Time) {
	updates.Apply(t)
	t.UpdatedAt = nextStamp(now, t.UpdatedAt)
	t.Version++
}

func notFound(err error, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return fmt.Errorf("failed to load task %s: %w", id, err)
}

func toRepoFilter(f *Filter) *repository.TaskFilter {
	if f == nil {
		return nil
	}
	rf := &repository.TaskFilter{
		AssigneeID: f.AssigneeID,
		BatchID:    f.BatchID,
		IsDraft:    f.IsDraft,
	}
	if f.Status != nil {
		s := string(*f.Status)
		rf.Status = &s
	}
	if f.Week != nil {
		w := f.Week.String()
		rf.Week = &w
	}
	return rf
}

// ToModel 转换为数据模型
func ToModel(t *Task) *model.TaskModel {
	m := &model.TaskModel{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         string(t.Status),
		Priority:       string(t.Priority),
		AssigneeID:     t.AssigneeID,
		AssigneeName:   t.AssigneeName,
		EstimatedHours: t.EstimatedHours,
		IsDraft:        t.IsDraft,
		SubmittedAt:    t.SubmittedAt,
		ReviewedAt:     t.ReviewedAt,
		ReviewedByID:   t.ReviewedByID,
		ReviewComment:  t.ReviewComment,
		StatusNote:     t.StatusNote,
		BatchID:        t.BatchID,
		CreatedByID:    t.CreatedByID,
		Version:        t.Version,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if !t.WeekSubmittedFor.IsZero() {
		m.WeekSubmittedFor = t.WeekSubmittedFor.String()
	}
	if t.DueDate != nil {
		d := t.DueDate.String()
		m.DueDate = &d
	}
	return m
}

// FromModel 由数据模型还原任务
func FromModel(m *model.TaskModel) (*Task, error) {
	status, err := ParseStatus(m.Status)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", m.ID, err)
	}
	priority, err := ParsePriority(m.Priority)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", m.ID, err)
	}
	t := &Task{
		ID:             m.ID,
		Title:          m.Title,
		Description:    m.Description,
		Status:         status,
		Priority:       priority,
		AssigneeID:     m.AssigneeID,
		AssigneeName:   m.AssigneeName,
		EstimatedHours: m.EstimatedHours,
		IsDraft:        m.IsDraft,
		SubmittedAt:    utcPtr(m.SubmittedAt),
		ReviewedAt:     utcPtr(m.ReviewedAt),
		ReviewedByID:   m.ReviewedByID,
		ReviewComment:  m.ReviewComment,
		StatusNote:     m.StatusNote,
		BatchID:        m.BatchID,
		CreatedByID:    m.CreatedByID,
		Version:        m.Version,
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
	if m.WeekSubmittedFor != "" {
		w, err := week.ParseWeek(m.WeekSubmittedFor)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", m.ID, err)
		}
		t.WeekSubmittedFor = w
	}
	if m.DueDate != nil && *m.DueDate != "" {
		d, err := ParseDate(*m.DueDate)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", m.ID, err)
		}
		t.DueDate = &d
	}
	return t, nil
}

func fromModels(models []*model.TaskModel) ([]*Task, error) {
	out := make([]*Task, 0, len(models))
	for _, m := range models {
		t, err := FromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
