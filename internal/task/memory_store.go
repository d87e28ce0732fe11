package task

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mautops/taskflow-gin/internal/week"
)

// MemoryStore 内存任务存储,进程生命周期内独占全部任务
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	clock week.Clock
}

// MemoryStoreOption 内存存储配置项
type MemoryStoreOption func(*MemoryStore)

// WithStoreClock 设置存储使用的时钟
func WithStoreClock(clock week.Clock) MemoryStoreOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemoryStore 创建内存任务存储
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		tasks: make(map[string]*Task),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create 创建任务
func (s *MemoryStore) Create(ctx context.Context, in CreateInput) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := newTask(in, s.clock(), NewBatchID())
	s.tasks[t.ID] = t
	return t.Clone(), nil
}

// Get 获取任务
func (s *MemoryStore) Get(ctx context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t.Clone(), nil
}

// List 按创建时间倒序列出任务
func (s *MemoryStore) List(ctx context.Context, filter *Filter) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if filter.Match(t) {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Update 合并更新并刷新 updatedAt
func (s *MemoryStore) Update(ctx context.Context, id string, updates Updates) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	s.apply(t, updates, s.clock())
	return t.Clone(), nil
}

// Delete 删除任务,不做状态检查
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	delete(s.tasks, id)
	return nil
}

// SubmitBatch 批量提交任务,所有任务共享同一个 batchId 和 submittedAt
// 任一任务不存在时不做任何修改,重复的 ID 只提交一次
func (s *MemoryStore) SubmitBatch(ctx context.Context, ids []string, w week.Week) ([]*Task, error) {
	ids = UniqueIDs(ids)
	if len(ids) == 0 {
		return nil, ErrEmptyBatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.tasks[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
	}

	now := s.clock()
	updates := submitUpdates(w, NewBatchID(), now)
	out := make([]*Task, 0, len(ids))
	for _, id := range ids {
		t := s.tasks[id]
		s.apply(t, updates, now)
		out = append(out, t.Clone())
	}
	return out, nil
}

// CreateBulk 批量创建并提交任务
func (s *MemoryStore) CreateBulk(ctx context.Context, w week.Week, inputs []CreateInput) ([]*Task, error) {
	return s.createMany(withWeek(inputs, w, false))
}

// SaveBulkDrafts 批量保存草稿
func (s *MemoryStore) SaveBulkDrafts(ctx context.Context, w week.Week, inputs []CreateInput) ([]*Task, error) {
	return s.createMany(withWeek(inputs, w, true))
}

// ApplyRemote 合并实时通道推送的更新,后写入者生效
func (s *MemoryStore) ApplyRemote(ctx context.Context, id string, updates Updates) (*Task, error) {
	return s.Update(ctx, id, updates)
}

// createMany 在同一把锁内创建多个任务,共享批次和时间
func (s *MemoryStore) createMany(inputs []CreateInput) ([]*Task, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyBatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	batchID := NewBatchID()
	out := make([]*Task, 0, len(inputs))
	for _, in := range inputs {
		t := newTask(in, now, batchID)
		s.tasks[t.ID] = t
		out = append(out, t.Clone())
	}
	return out, nil
}

// apply 合并更新、刷新时间戳并递增版本
func (s *MemoryStore) apply(t *Task, updates Updates, now time.Time) {
	updates.Apply(t)
	t.UpdatedAt = nextStamp(now, t.UpdatedAt)
	t.Version++
}
