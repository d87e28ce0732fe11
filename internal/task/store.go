package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/taskflow-gin/internal/week"
)

var (
	// ErrTaskNotFound 任务不存在
	ErrTaskNotFound = errors.New("task not found")
	// ErrEmptyBatch 批量操作未包含任何任务
	ErrEmptyBatch = errors.New("batch contains no tasks")
	// ErrVersionConflict 客户端持有的版本已过期
	ErrVersionConflict = errors.New("task version conflict")
)

// Store 任务/草稿存储
// 存储层只负责字段合并和时间戳,状态流转的合法性由 workflow 包校验
type Store interface {
	Create(ctx context.Context, in CreateInput) (*Task, error)
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, filter *Filter) ([]*Task, error)
	Update(ctx context.Context, id string, updates Updates) (*Task, error)
	Delete(ctx context.Context, id string) error
	SubmitBatch(ctx context.Context, ids []string, w week.Week) ([]*Task, error)
	CreateBulk(ctx context.Context, w week.Week, inputs []CreateInput) ([]*Task, error)
	SaveBulkDrafts(ctx context.Context, w week.Week, inputs []CreateInput) ([]*Task, error)
	ApplyRemote(ctx context.Context, id string, updates Updates) (*Task, error)
}

// NewID 生成任务 ID
func NewID() string {
	return "task-" + uuid.NewString()
}

// NewBatchID 生成批次 ID
func NewBatchID() string {
	return "batch-" + uuid.NewString()
}

// newTask 按创建规则填充任务
// 非草稿任务直接进入 pending_approval,并打上提交时间和批次
func newTask(in CreateInput, now time.Time, batchID string) *Task {
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	t := &Task{
		ID:               NewID(),
		Title:            in.Title,
		Description:      in.Description,
		Priority:         priority,
		AssigneeID:       in.AssigneeID,
		AssigneeName:     in.AssigneeName,
		WeekSubmittedFor: in.WeekSubmittedFor,
		IsDraft:          in.IsDraft,
		CreatedByID:      in.CreatedByID,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if in.DueDate != nil {
		d := *in.DueDate
		t.DueDate = &d
	}
	if in.EstimatedHours != nil {
		h := *in.EstimatedHours
		t.EstimatedHours = &h
	}
	if in.IsDraft {
		t.Status = StatusDraft
		return t
	}
	submitted := now
	t.Status = StatusPendingApproval
	t.SubmittedAt = &submitted
	t.BatchID = batchID
	return t
}

// nextStamp 返回严格晚于 prev 的时间戳
func nextStamp(now, prev time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Microsecond)
}

// submitUpdates 批量提交时对单个任务的更新
func submitUpdates(w week.Week, batchID string, submittedAt time.Time) Updates {
	status := StatusPendingApproval
	isDraft := false
	return Updates{
		Status:           &status,
		IsDraft:          &isDraft,
		SubmittedAt:      &submittedAt,
		BatchID:          &batchID,
		WeekSubmittedFor: &w,
	}
}

// UniqueIDs 按首次出现顺序去重
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// withWeek 将批量输入统一到同一周
func withWeek(inputs []CreateInput, w week.Week, isDraft bool) []CreateInput {
	out := make([]CreateInput, len(inputs))
	for i, in := range inputs {
		in.WeekSubmittedFor = w
		in.IsDraft = isDraft
		out[i] = in
	}
	return out
}
