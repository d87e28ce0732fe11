package workflow

import (
	"testing"
	"time"

	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/mautops/taskflow-gin/internal/week"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day int) *time.Time {
	t := time.Date(2025, 3, day, 9, 0, 0, 0, time.UTC)
	return &t
}

func TestGroupTaskBatches(t *testing.T) {
	w10 := week.MustParse("2025-W10")
	tasks := []*task.Task{
		{ID: "a1", BatchID: "batch-a", Status: task.StatusPendingApproval, SubmittedAt: at(1), WeekSubmittedFor: w10},
		{ID: "a2", BatchID: "batch-a", Status: task.StatusPendingApproval, SubmittedAt: at(1), WeekSubmittedFor: w10},
		{ID: "b1", BatchID: "batch-b", Status: task.StatusInProgress, SubmittedAt: at(2)},
		{ID: "b2", BatchID: "batch-b", Status: task.StatusPendingApproval, SubmittedAt: at(2)},
		{ID: "c1", BatchID: "batch-c", Status: task.StatusRejected, SubmittedAt: at(3)},
		{ID: "d1", Status: task.StatusDraft},
	}

	batches := GroupTaskBatches(tasks)
	require.Len(t, batches, 3)

	// 按提交时间倒序
	assert.Equal(t, "batch-c", batches[0].ID)
	assert.Equal(t, BatchDecided, batches[0].State)
	assert.Equal(t, "batch-b", batches[1].ID)
	assert.Equal(t, BatchPartiallyDecided, batches[1].State)
	assert.Equal(t, "batch-a", batches[2].ID)
	assert.Equal(t, BatchPending, batches[2].State)
	assert.Len(t, batches[2].Tasks, 2)
	assert.Equal(t, w10, batches[2].Week)
}

func TestGroupForReview(t *testing.T) {
	w10 := week.MustParse("2025-W10")
	w11 := week.MustParse("2025-W11")
	tasks := []*task.Task{
		{ID: "1", AssigneeID: "u-2", AssigneeName: "Bob", WeekSubmittedFor: w10, Status: task.StatusPendingApproval},
		{ID: "2", AssigneeID: "u-1", AssigneeName: "Alice", WeekSubmittedFor: w10, Status: task.StatusPendingApproval},
		{ID: "3", AssigneeID: "u-1", AssigneeName: "Alice", WeekSubmittedFor: w11, Status: task.StatusPendingApproval},
		{ID: "4", AssigneeID: "u-1", AssigneeName: "Alice", WeekSubmittedFor: w10, Status: task.StatusPendingApproval},
		{ID: "5", AssigneeID: "u-1", AssigneeName: "Alice", WeekSubmittedFor: w10, Status: task.StatusInProgress},
	}

	batches := GroupForReview(tasks)
	require.Len(t, batches, 3)
	assert.Equal(t, "u-1@2025-W10", batches[0].Key)
	assert.Equal(t, []string{"2", "4"}, batches[0].TaskIDs())
	assert.Equal(t, "u-2@2025-W10", batches[1].Key)
	assert.Equal(t, "u-1@2025-W11", batches[2].Key)
}

func TestParseReviewKey(t *testing.T) {
	key, err := ParseReviewKey("user@example.com@2025-W10")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", key.StaffID)
	assert.Equal(t, week.MustParse("2025-W10"), key.Week)
	assert.Equal(t, "user@example.com@2025-W10", key.String())

	for _, bad := range []string{"", "u-1", "@2025-W10", "u-1@2025-10"} {
		_, err := ParseReviewKey(bad)
		assert.ErrorIs(t, err, ErrInvalidReviewKey, bad)
	}
}
