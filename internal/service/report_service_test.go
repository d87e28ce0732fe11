package service

import (
	"context"
	"testing"

	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportService_Summary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	due := task.NewDate(2025, 3, 1)
	h.create(t, alice, CreateTaskRequest{Title: "a1", WeekSubmittedFor: "2025-W11", DueDate: &due, EstimatedHours: ptr(2.0)})
	h.create(t, alice, CreateTaskRequest{Title: "a2", WeekSubmittedFor: "2025-W12", IsDraft: true})
	h.create(t, bob, CreateTaskRequest{Title: "b1", WeekSubmittedFor: "2025-W11"})

	mine, err := h.reports.Summary(ctx, alice, "")
	require.NoError(t, err)
	assert.Equal(t, 2, mine.Total)
	assert.Equal(t, 1, mine.PendingApproval)
	assert.Equal(t, 1, mine.Overdue)
	assert.InDelta(t, 2.0, mine.EstimatedHours, 0.001)

	team, err := h.reports.Summary(ctx, manager, "")
	require.NoError(t, err)
	assert.Equal(t, 3, team.Total)
	assert.Len(t, team.ByStaff, 2)

	w11Only, err := h.reports.Summary(ctx, manager, "2025-W11")
	require.NoError(t, err)
	assert.Equal(t, 2, w11Only.Total)

	_, err = h.reports.Summary(ctx, manager, "bad")
	assert.True(t, IsValidationError(err))

	counts, err := h.reports.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[string(task.StatusPendingApproval)])
	assert.Equal(t, 1, counts[string(task.StatusDraft)])
	assert.Equal(t, 0, counts[string(task.StatusDone)])
}

func TestAuditLogService_RecordsRequestInfo(t *testing.T) {
	h := newHarness(t)
	ctx := WithRequestInfo(context.Background(), "req-1", "10.0.0.1", "curl/8")

	require.NoError(t, h.audit.RecordAction(ctx, "alice", "update", "task", "task-1", map[string]string{"k": "v"}))

	logs, err := h.audit.ListByUser(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "req-1", logs[0].RequestID)
	assert.Equal(t, "10.0.0.1", logs[0].IP)
	assert.JSONEq(t, `{"k":"v"}`, string(logs[0].Details))

	err = h.audit.RecordAction(context.Background(), "", "update", "task", "task-1", nil)
	assert.Error(t, err)
}

func TestHistoryService_Transitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	draft := h.create(t, alice, CreateTaskRequest{Title: "d", WeekSubmittedFor: "2025-W11", IsDraft: true})
	h.create(t, bob, CreateTaskRequest{Title: "b", WeekSubmittedFor: "2025-W12"})
	_, err := h.tasks.SubmitBatch(ctx, alice, &SubmitBatchRequest{TaskIDs: []string{draft.ID}, Week: "2025-W11"})
	require.NoError(t, err)

	history, err := h.history.List(ctx, draft.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, task.StatusDraft, history[0].ToState)
	assert.Equal(t, task.StatusPendingApproval, history[1].ToState)
	assert.Equal(t, task.RoleEmployee, history[1].OperatorRole)
	assert.Equal(t, "2025-W11", history[1].Week)
	assert.Greater(t, history[1].Version, history[0].Version)

	w11, err := h.history.Transitions(ctx, "2025-W11")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"draft": 1, "pending_approval": 1}, w11)

	all, err := h.history.Transitions(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, all["pending_approval"])

	_, err = h.history.Transitions(ctx, "next week")
	assert.True(t, IsValidationError(err))
}
