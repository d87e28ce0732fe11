// Package workflow 定义任务状态流转策略和经理审批流程
package workflow

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mautops/taskflow-gin/internal/task"
)

// ErrInvalidTransition 状态流转不在流转表中
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError 非法流转的详细信息
type TransitionError struct {
	From task.Status
	To   task.Status
	Role task.Role
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move task from %s to %s", e.Role, e.From, e.To)
}

// Unwrap 支持 errors.Is(err, ErrInvalidTransition)
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// employeeTransitions 员工流转表,未列出的状态员工不可变更
var employeeTransitions = map[task.Status][]task.Status{
	task.StatusDraft:      {task.StatusPendingApproval},
	task.StatusRejected:   {task.StatusPendingApproval},
	task.StatusTodo:       {task.StatusInProgress},
	task.StatusApproved:   {task.StatusInProgress},
	task.StatusInProgress: {task.StatusFinished, task.StatusDelayed, task.StatusCancelled},
	task.StatusOverdue:    {task.StatusInProgress, task.StatusFinished, task.StatusDelayed, task.StatusCancelled},
}

// reviewOutcomes 待审批任务只能由经理批准或驳回
var reviewOutcomes = []task.Status{task.StatusInProgress, task.StatusRejected}

// AllowedFrom 返回角色可以将 from 状态变更到的目标状态
func AllowedFrom(from task.Status, role task.Role) []task.Status {
	switch role {
	case task.RoleManager:
		if from == task.StatusPendingApproval {
			return slices.Clone(reviewOutcomes)
		}
		// 管理员覆盖:其余状态可设置为任意其他状态
		out := make([]task.Status, 0, len(task.AllStatuses)-1)
		for _, s := range task.AllStatuses {
			if s != from {
				out = append(out, s)
			}
		}
		return out
	case task.RoleEmployee:
		return slices.Clone(employeeTransitions[from])
	default:
		return nil
	}
}

// AllowedTransitions 返回角色对任务可执行的状态变更
func AllowedTransitions(t *task.Task, role task.Role) []task.Status {
	if t == nil {
		return nil
	}
	return AllowedFrom(t.Status, role)
}

// CanTransition 角色是否可以将任务从 from 变更到 to
func CanTransition(from, to task.Status, role task.Role) bool {
	return slices.Contains(AllowedFrom(from, role), to)
}

// ValidateTransition 校验状态变更,非法时返回 *TransitionError
func ValidateTransition(from, to task.Status, role task.Role) error {
	if !CanTransition(from, to, role) {
		return &TransitionError{From: from, To: to, Role: role}
	}
	return nil
}

// StaffCanEdit 员工是否可以编辑任务内容
func StaffCanEdit(t *task.Task) bool {
	return t != nil && t.Status.IsStaffEditable()
}
