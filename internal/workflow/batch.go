package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/mautops/taskflow-gin/internal/week"
)

// BatchState 由成员任务推导出的批次状态
type BatchState string

const (
	BatchPending          BatchState = "pending"
	BatchPartiallyDecided BatchState = "partially_decided"
	BatchDecided          BatchState = "decided"
)

// TaskBatch 同一次提交产生的任务集合
type TaskBatch struct {
	ID           string       `json:"id"`
	AssigneeID   string       `json:"assigneeId"`
	AssigneeName string       `json:"assigneeName"`
	Week         week.Week    `json:"week"`
	SubmittedAt  *time.Time   `json:"submittedAt,omitempty"`
	State        BatchState   `json:"state"`
	Tasks        []*task.Task `json:"tasks"`
}

// InferBatchState 全部待审批为 pending,全部已处理为 decided,否则 partially_decided
func InferBatchState(tasks []*task.Task) BatchState {
	pending := 0
	for _, t := range tasks {
		if t.Status == task.StatusPendingApproval {
			pending++
		}
	}
	switch {
	case pending == len(tasks):
		return BatchPending
	case pending == 0:
		return BatchDecided
	default:
		return BatchPartiallyDecided
	}
}

// GroupTaskBatches 按 batchId 分组,按提交时间倒序返回
// 没有 batchId 的任务 (草稿) 不属于任何批次
func GroupTaskBatches(tasks []*task.Task) []TaskBatch {
	index := make(map[string]int)
	var batches []TaskBatch
	for _, t := range tasks {
		if t.BatchID == "" {
			continue
		}
		i, ok := index[t.BatchID]
		if !ok {
			i = len(batches)
			index[t.BatchID] = i
			batches = append(batches, TaskBatch{
				ID:           t.BatchID,
				AssigneeID:   t.AssigneeID,
				AssigneeName: t.AssigneeName,
				Week:         t.WeekSubmittedFor,
				SubmittedAt:  t.SubmittedAt,
			})
		}
		batches[i].Tasks = append(batches[i].Tasks, t)
	}
	for i := range batches {
		batches[i].State = InferBatchState(batches[i].Tasks)
	}
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i].SubmittedAt, batches[j].SubmittedAt
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})
	return batches
}

// ErrInvalidReviewKey 审批批次键格式错误
var ErrInvalidReviewKey = errors.New("invalid review key")

// ReviewKey 审批视图中的批次标识: 员工 + 目标周
type ReviewKey struct {
	StaffID string
	Week    week.Week
}

// String 返回 staffId@YYYY-W##
func (k ReviewKey) String() string {
	return k.StaffID + "@" + k.Week.String()
}

// ParseReviewKey 解析 staffId@YYYY-W##
func ParseReviewKey(s string) (ReviewKey, error) {
	i := strings.LastIndex(s, "@")
	if i <= 0 {
		return ReviewKey{}, fmt.Errorf("%w: %q", ErrInvalidReviewKey, s)
	}
	w, err := week.ParseWeek(s[i+1:])
	if err != nil {
		return ReviewKey{}, fmt.Errorf("%w: %q", ErrInvalidReviewKey, s)
	}
	return ReviewKey{StaffID: s[:i], Week: w}, nil
}

// ReviewBatch 经理审批时展示的一组待审批任务
type ReviewBatch struct {
	Key       string       `json:"key"`
	StaffID   string       `json:"staffId"`
	StaffName string       `json:"staffName"`
	Week      week.Week    `json:"week"`
	Tasks     []*task.Task `json:"tasks"`
}

// TaskIDs 返回批次内的任务 ID
func (b ReviewBatch) TaskIDs() []string {
	ids := make([]string, len(b.Tasks))
	for i, t := range b.Tasks {
		ids[i] = t.ID
	}
	return ids
}

// GroupForReview 将待审批任务按 (员工, 目标周) 分组
// 结果按周升序,同一周内按员工名称排序
func GroupForReview(tasks []*task.Task) []ReviewBatch {
	index := make(map[ReviewKey]int)
	var batches []ReviewBatch
	for _, t := range tasks {
		if t.Status != task.StatusPendingApproval {
			continue
		}
		key := ReviewKey{StaffID: t.AssigneeID, Week: t.WeekSubmittedFor}
		i, ok := index[key]
		if !ok {
			i = len(batches)
			index[key] = i
			batches = append(batches, ReviewBatch{
				Key:       key.String(),
				StaffID:   t.AssigneeID,
				StaffName: t.AssigneeName,
				Week:      t.WeekSubmittedFor,
			})
		}
		batches[i].Tasks = append(batches[i].Tasks, t)
	}
	sort.SliceStable(batches, func(i, j int) bool {
		if batches[i].Week != batches[j].Week {
			return batches[i].Week.Before(batches[j].Week)
		}
		if batches[i].StaffName != batches[j].StaffName {
			return batches[i].StaffName < batches[j].StaffName
		}
		return batches[i].StaffID < batches[j].StaffID
	})
	return batches
}
