package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mautops/taskflow-gin/internal/event"
	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/mautops/taskflow-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// submitTwo alice 在 W11 提交两个任务
func submitTwo(t *testing.T, h *harness) (*task.Task, *task.Task) {
	t.Helper()
	created, err := h.tasks.CreateBulk(context.Background(), alice, &BulkCreateRequest{
		Week:  "2025-W11",
		Tasks: []CreateTaskRequest{{Title: "one"}, {Title: "two"}},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	return created[0], created[1]
}

func TestReviewService_StaffForbidden(t *testing.T) {
	h := newHarness(t)
	_, err := h.reviews.ListBatches(context.Background(), alice)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = h.reviews.SubmitBatch(context.Background(), alice, "alice@2025-W11")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestReviewService_ListBatches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	one, two := submitTwo(t, h)
	h.create(t, bob, CreateTaskRequest{Title: "bob", WeekSubmittedFor: "2025-W11"})
	h.create(t, alice, CreateTaskRequest{Title: "draft", WeekSubmittedFor: "2025-W11", IsDraft: true})

	batches, err := h.reviews.ListBatches(ctx, manager)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "alice@2025-W11", batches[0].Key)
	assert.Equal(t, "bob@2025-W11", batches[1].Key)
	assert.ElementsMatch(t, []string{one.ID, two.ID}, []string{batches[0].Tasks[0].ID, batches[0].Tasks[1].ID})
	assert.False(t, batches[0].CanSubmit)
	assert.Equal(t, workflow.DecisionPending, batches[0].Decisions[one.ID].Status)
}

func TestReviewService_DecisionsAndSubmit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	one, two := submitTwo(t, h)
	key := "alice@2025-W11"

	v, err := h.reviews.SetDecision(ctx, manager, key, one.ID, &DecisionRequest{Decision: "approve"})
	require.NoError(t, err)
	assert.False(t, v.CanSubmit)

	_, err = h.reviews.SubmitBatch(ctx, manager, key)
	assert.ErrorIs(t, err, ErrBatchIncomplete)

	// 全部驳回但没有意见,提交时被拒绝且不修改任何任务
	v, err = h.reviews.ApplyAll(ctx, manager, key, &DecisionRequest{Decision: "reject"})
	require.NoError(t, err)
	assert.True(t, v.CanSubmit)
	_, err = h.reviews.SubmitBatch(ctx, manager, key)
	assert.ErrorIs(t, err, workflow.ErrRejectCommentRequired)
	got, err := h.tasks.Get(ctx, manager, one.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusPendingApproval, got.Status)

	// 批量决定之后可以逐个覆盖
	_, err = h.reviews.SetDecision(ctx, manager, key, one.ID, &DecisionRequest{Decision: "approve", Comment: "good"})
	require.NoError(t, err)
	_, err = h.reviews.SetDecision(ctx, manager, key, two.ID, &DecisionRequest{Decision: "reject", Comment: "too vague"})
	require.NoError(t, err)

	result, err := h.reviews.SubmitBatch(ctx, manager, key)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Approved)
	assert.Equal(t, 1, result.Rejected)
	require.Len(t, result.Results, 2)
	for _, r := range result.Results {
		assert.True(t, r.Success, r.Error)
	}

	approved, err := h.tasks.Get(ctx, alice, one.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, approved.Status)
	assert.Equal(t, manager.ID, approved.ReviewedByID)

	rejected, err := h.tasks.Get(ctx, alice, two.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusRejected, rejected.Status)
	assert.Equal(t, "too vague", rejected.ReviewComment)

	records, err := h.reviews.Records(ctx, alice, two.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "reject", records[0].Result)
	assert.Equal(t, key, records[0].BatchKey)

	notifications := h.events.ofType(event.TypeNotification)
	require.Len(t, notifications, 1)
	assert.Equal(t, alice.ID, notifications[0].UserID)
	var n ReviewNotification
	require.NoError(t, json.Unmarshal(notifications[0].Data, &n))
	assert.Equal(t, 1, n.Approved)
	assert.Equal(t, "2025-W11", n.Week)

	// 批次已处理完,不再出现在列表中
	batches, err := h.reviews.ListBatches(ctx, manager)
	require.NoError(t, err)
	assert.Empty(t, batches)
	_, err = h.reviews.GetBatch(ctx, manager, key)
	assert.ErrorIs(t, err, ErrBatchNotFound)

	stats, err := h.stats.GetReviewStatistics(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalReviews)
	assert.EqualValues(t, 1, stats.ApprovedCount)
	assert.InDelta(t, 50.0, stats.ApprovalRate, 0.001)

	byReviewer, err := h.stats.GetReviewStatisticsByReviewer(ctx)
	require.NoError(t, err)
	require.Len(t, byReviewer, 1)
	assert.Equal(t, manager.ID, byReviewer[0].ReviewerID)
	assert.EqualValues(t, 1, byReviewer[0].Rejected)
}

func TestReviewService_InvalidInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	one, _ := submitTwo(t, h)

	_, err := h.reviews.SetDecision(ctx, manager, "alice@2025-W11", one.ID, &DecisionRequest{Decision: "maybe"})
	assert.True(t, IsValidationError(err))

	_, err = h.reviews.SetDecision(ctx, manager, "not-a-key", one.ID, &DecisionRequest{Decision: "approve"})
	assert.ErrorIs(t, err, workflow.ErrInvalidReviewKey)

	_, err = h.reviews.SetDecision(ctx, manager, "alice@2025-W11", "task-missing", &DecisionRequest{Decision: "approve"})
	assert.ErrorIs(t, err, task.ErrTaskNotFound)

	_, err = h.reviews.GetBatch(ctx, manager, "bob@2025-W11")
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestReviewService_BoardsArePerManager(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	one, _ := submitTwo(t, h)
	other := manager
	other.ID = "max"

	_, err := h.reviews.SetDecision(ctx, manager, "alice@2025-W11", one.ID, &DecisionRequest{Decision: "approve"})
	require.NoError(t, err)

	v, err := h.reviews.GetBatch(ctx, other, "alice@2025-W11")
	require.NoError(t, err)
	assert.Equal(t, workflow.DecisionPending, v.Decisions[one.ID].Status)
}
