package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/taskflow-gin/internal/auth"
	"github.com/mautops/taskflow-gin/internal/model"
	"github.com/mautops/taskflow-gin/internal/repository"
	"github.com/mautops/taskflow-gin/internal/task"
)

// HistoryService 任务状态历史服务
type HistoryService interface {
	Record(ctx context.Context, actor auth.Identity, from task.Status, after *task.Task, reason string) error
	List(ctx context.Context, taskID string) ([]*StateHistory, error)
	Transitions(ctx context.Context, week string) (map[string]int64, error)
}

// StateHistory 状态历史
// @Description 任务的一次状态变化
type StateHistory struct {
	ID           string      `json:"id"`
	TaskID       string      `json:"taskId" example:"task-001"`
	Version      int         `json:"version" example:"2"`
	Week         string      `json:"week,omitempty" example:"2025-W10"`
	FromState    task.Status `json:"fromState,omitempty" example:"draft"`
	ToState      task.Status `json:"toState" example:"pending_approval"`
	Reason       string      `json:"reason,omitempty" example:"submitted"`
	Operator     string      `json:"operator" example:"user-001"`
	OperatorRole task.Role   `json:"operatorRole,omitempty" swaggertype:"string" example:"employee"`
	CreatedAt    time.Time   `json:"createdAt"`
}

type historyService struct {
	repo repository.StateHistoryRepository
}

// NewHistoryService 创建状态历史服务
func NewHistoryService(repo repository.StateHistoryRepository) HistoryService {
	return &historyService{repo: repo}
}

// Record 记录 after 相对 from 的状态变化,from 为空表示新建
func (s *historyService) Record(ctx context.Context, actor auth.Identity, from task.Status, after *task.Task, reason string) error {
	changedAt := after.UpdatedAt
	if changedAt.IsZero() {
		changedAt = time.Now()
	}
	h := &model.StateHistoryModel{
		ID:           uuid.NewString(),
		TaskID:       after.ID,
		Version:      int64(after.Version),
		FromState:    string(from),
		ToState:      string(after.Status),
		Reason:       reason,
		OperatorID:   actor.ID,
		OperatorRole: string(actor.Role),
		ChangedAt:    changedAt.UTC(),
	}
	if !after.WeekSubmittedFor.IsZero() {
		h.Week = after.WeekSubmittedFor.String()
	}
	if err := h.Validate(); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, h); err != nil {
		return fmt.Errorf("failed to save state history: %w", err)
	}
	return nil
}

// List 按任务版本顺序返回状态历史
func (s *historyService) List(ctx context.Context, taskID string) ([]*StateHistory, error) {
	rows, err := s.repo.FindByTaskID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load state history: %w", err)
	}
	out := make([]*StateHistory, 0, len(rows))
	for _, r := range rows {
		out = append(out, &StateHistory{
			ID:           r.ID,
			TaskID:       r.TaskID,
			Version:      int(r.Version),
			Week:         r.Week,
			FromState:    task.Status(r.FromState),
			ToState:      task.Status(r.ToState),
			Reason:       r.Reason,
			Operator:     r.OperatorID,
			OperatorRole: task.Role(r.OperatorRole),
			CreatedAt:    r.ChangedAt,
		})
	}
	return out, nil
}

// Transitions 统计进入各状态的次数
func (s *historyService) Transitions(ctx context.Context, week string) (map[string]int64, error) {
	if week != "" {
		w, err := parseWeek(week)
		if err != nil {
			return nil, err
		}
		week = w.String()
	}
	counts, err := s.repo.CountByTarget(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("failed to count state changes: %w", err)
	}
	return counts, nil
}
