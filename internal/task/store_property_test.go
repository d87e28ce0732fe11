package task

import (
	"context"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// TestProperty_UpdatesAreMonotonic 任意更新序列下 updatedAt 严格递增且版本逐一递增
func TestProperty_UpdatesAreMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		// 时钟可能停滞或回拨
		offsets := rapid.SliceOfN(rapid.IntRange(-5, 5), 1, 20).Draw(rt, "offsets")
		i := 0
		clock := func() time.Time {
			d := time.Duration(offsets[i%len(offsets)]) * time.Millisecond
			i++
			return start.Add(d)
		}
		store := NewMemoryStore(WithStoreClock(clock))
		ctx := context.Background()

		created, err := store.Create(ctx, CreateInput{Title: "t", WeekSubmittedFor: w10, IsDraft: true})
		if err != nil {
			rt.Fatal(err)
		}
		prev := created
		for j := range offsets {
			title := rapid.StringN(1, 10, -1).Draw(rt, "title")
			updated, err := store.Update(ctx, created.ID, Updates{Title: &title})
			if err != nil {
				rt.Fatal(err)
			}
			if !updated.UpdatedAt.After(prev.UpdatedAt) {
				rt.Fatalf("update %d: updatedAt %v not after %v", j, updated.UpdatedAt, prev.UpdatedAt)
			}
			if updated.Version != prev.Version+1 {
				rt.Fatalf("update %d: version %d after %d", j, updated.Version, prev.Version)
			}
			if updated.Title != title {
				rt.Fatalf("update %d: title %q, want %q", j, updated.Title, title)
			}
			prev = updated
		}
	})
}

// TestProperty_SubmitBatchUniform 任意规模的草稿批量提交后共享批次和提交时间
func TestProperty_SubmitBatchUniform(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 15).Draw(rt, "n")
		store := NewMemoryStore()
		ctx := context.Background()

		inputs := make([]CreateInput, n)
		for i := range inputs {
			inputs[i] = CreateInput{Title: "t", AssigneeID: "u-1"}
		}
		drafts, err := store.SaveBulkDrafts(ctx, w10, inputs)
		if err != nil {
			rt.Fatal(err)
		}
		ids := make([]string, n)
		for i, d := range drafts {
			ids[i] = d.ID
		}
		submitted, err := store.SubmitBatch(ctx, ids, w10)
		if err != nil {
			rt.Fatal(err)
		}
		for _, s := range submitted {
			if s.Status != StatusPendingApproval || s.IsDraft {
				rt.Fatalf("task %s not submitted: %s", s.ID, s.Status)
			}
			if s.BatchID != submitted[0].BatchID || !s.SubmittedAt.Equal(*submitted[0].SubmittedAt) {
				rt.Fatalf("task %s not in shared batch", s.ID)
			}
		}
	})
}
