package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mautops/taskflow-gin/internal/task"
)

var (
	// ErrPendingDecision 决定仍为 pending,不能应用
	ErrPendingDecision = errors.New("decision is still pending")
	// ErrRejectCommentRequired 驳回时必须填写意见
	ErrRejectCommentRequired = errors.New("rejection requires a comment")
	// ErrNotPendingApproval 任务不在待审批状态
	ErrNotPendingApproval = errors.New("task is not pending approval")
)

// DecisionStatus 经理对单个任务的决定
type DecisionStatus string

const (
	DecisionPending DecisionStatus = "pending"
	DecisionApprove DecisionStatus = "approve"
	DecisionReject  DecisionStatus = "reject"
)

// ParseDecisionStatus 解析决定状态
func ParseDecisionStatus(s string) (DecisionStatus, error) {
	switch DecisionStatus(strings.ToLower(s)) {
	case DecisionPending, DecisionApprove, DecisionReject:
		return DecisionStatus(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("unknown decision: %q", s)
	}
}

// Decision 本地记录的审批决定,提交前不影响任务状态
type Decision struct {
	Status  DecisionStatus `json:"status"`
	Comment string         `json:"comment,omitempty"`
}

// Decided 是否已做出非 pending 的决定
func (d Decision) Decided() bool {
	return d.Status == DecisionApprove || d.Status == DecisionReject
}

// Target 决定对应的目标状态
func (d Decision) Target() (task.Status, error) {
	switch d.Status {
	case DecisionApprove:
		return task.StatusInProgress, nil
	case DecisionReject:
		return task.StatusRejected, nil
	case DecisionPending, "":
		return "", ErrPendingDecision
	default:
		return "", fmt.Errorf("unknown decision: %q", d.Status)
	}
}

// Validate 校验决定,requireRejectComment 为真时驳回必须带意见
func (d Decision) Validate(requireRejectComment bool) error {
	if _, err := d.Target(); err != nil && !errors.Is(err, ErrPendingDecision) {
		return err
	}
	if requireRejectComment && d.Status == DecisionReject && strings.TrimSpace(d.Comment) == "" {
		return ErrRejectCommentRequired
	}
	return nil
}

// ApplyDecision 将经理决定转换为任务更新,按经理流转表校验
func ApplyDecision(t *task.Task, d Decision, reviewerID string, now time.Time) (task.Updates, error) {
	target, err := d.Target()
	if err != nil {
		return task.Updates{}, err
	}
	if t.Status != task.StatusPendingApproval {
		return task.Updates{}, fmt.Errorf("%w: %s is %s", ErrNotPendingApproval, t.ID, t.Status)
	}
	if err := ValidateTransition(t.Status, target, task.RoleManager); err != nil {
		return task.Updates{}, err
	}
	reviewedAt := now
	comment := d.Comment
	return task.Updates{
		Status:        &target,
		ReviewedAt:    &reviewedAt,
		ReviewedByID:  &reviewerID,
		ReviewComment: &comment,
	}, nil
}
