package workflow

import (
	"errors"
	"testing"

	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestAllowedFrom_Employee(t *testing.T) {
	tests := []struct {
		from task.Status
		want []task.Status
	}{
		{task.StatusDraft, []task.Status{task.StatusPendingApproval}},
		{task.StatusRejected, []task.Status{task.StatusPendingApproval}},
		{task.StatusTodo, []task.Status{task.StatusInProgress}},
		{task.StatusInProgress, []task.Status{task.StatusFinished, task.StatusDelayed, task.StatusCancelled}},
		{task.StatusOverdue, []task.Status{task.StatusInProgress, task.StatusFinished, task.StatusDelayed, task.StatusCancelled}},
		{task.StatusPendingApproval, nil},
		{task.StatusFinished, nil},
		{task.StatusDelayed, nil},
		{task.StatusCancelled, nil},
		{task.StatusDone, nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, AllowedFrom(tt.from, task.RoleEmployee))
		})
	}
}

func TestAllowedFrom_Manager(t *testing.T) {
	assert.ElementsMatch(t,
		[]task.Status{task.StatusInProgress, task.StatusRejected},
		AllowedFrom(task.StatusPendingApproval, task.RoleManager))

	// 其他状态可以覆盖为任意不同状态
	for _, from := range task.AllStatuses {
		if from == task.StatusPendingApproval {
			continue
		}
		allowed := AllowedFrom(from, task.RoleManager)
		assert.Len(t, allowed, len(task.AllStatuses)-1, "from %s", from)
		assert.NotContains(t, allowed, from)
	}
}

func TestAllowedFrom_UnknownRole(t *testing.T) {
	assert.Empty(t, AllowedFrom(task.StatusDraft, task.Role("guest")))
}

func TestAllowedFrom_ReturnsCopy(t *testing.T) {
	got := AllowedFrom(task.StatusInProgress, task.RoleEmployee)
	got[0] = task.StatusDone
	assert.NotContains(t, AllowedFrom(task.StatusInProgress, task.RoleEmployee), task.StatusDone)
}

func TestValidateTransition(t *testing.T) {
	require.NoError(t, ValidateTransition(task.StatusTodo, task.StatusInProgress, task.RoleEmployee))

	err := ValidateTransition(task.StatusPendingApproval, task.StatusDone, task.RoleManager)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, task.StatusPendingApproval, te.From)
	assert.Equal(t, task.StatusDone, te.To)
	assert.Equal(t, task.RoleManager, te.Role)
}

func TestStaffCanEdit(t *testing.T) {
	for _, s := range task.AllStatuses {
		want := s == task.StatusDraft || s == task.StatusRejected
		assert.Equal(t, want, StaffCanEdit(&task.Task{Status: s}), "status %s", s)
	}
	assert.False(t, StaffCanEdit(nil))
}

// TestProperty_PendingApprovalOnlyApprovedOrRejected 待审批任务只能流转到 in_progress 或 rejected
func TestProperty_PendingApprovalOnlyApprovedOrRejected(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		target := rapid.SampledFrom(task.AllStatuses).Draw(rt, "target")
		role := rapid.SampledFrom([]task.Role{task.RoleEmployee, task.RoleManager}).Draw(rt, "role")

		err := ValidateTransition(task.StatusPendingApproval, target, role)
		allowed := role == task.RoleManager &&
			(target == task.StatusInProgress || target == task.StatusRejected)
		if allowed && err != nil {
			rt.Fatalf("%s -> %s rejected for %s: %v", task.StatusPendingApproval, target, role, err)
		}
		if !allowed && !errors.Is(err, ErrInvalidTransition) {
			rt.Fatalf("%s -> %s accepted for %s", task.StatusPendingApproval, target, role)
		}
	})
}

// TestProperty_EmployeeNeverLeavesTerminal 员工无法变更终态任务 (rejected 的重新提交除外)
func TestProperty_EmployeeNeverLeavesTerminal(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		from := rapid.SampledFrom(task.AllStatuses).Draw(rt, "from")
		to := rapid.SampledFrom(task.AllStatuses).Draw(rt, "to")
		if !from.IsTerminal() || from == task.StatusRejected {
			return
		}
		if CanTransition(from, to, task.RoleEmployee) {
			rt.Fatalf("employee moved terminal %s to %s", from, to)
		}
	})
}
