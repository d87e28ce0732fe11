package event

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mautops/taskflow-gin/internal/config"
	"github.com/mautops/taskflow-gin/internal/database"
	"github.com/mautops/taskflow-gin/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(t *testing.T, next Publisher) *PersistingPublisher {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return NewPersistingPublisher(repository.NewEventRepository(db), next)
}

func TestNew_EncodesData(t *testing.T) {
	ev, err := New(TypeTaskDeleted, "task-1", "", map[string]string{"taskId": "task-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)

	frame, err := ev.Encode()
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(frame, &decoded))
	assert.Equal(t, "task:deleted", decoded["type"])
	assert.Equal(t, "task-1", decoded["data"].(map[string]interface{})["taskId"])
	_, hasUser := decoded["UserID"]
	assert.False(t, hasUser)
}

func TestPersistingPublisher_AssignsSeqAndForwards(t *testing.T) {
	var forwarded []Event
	pub := newTestPublisher(t, PublisherFunc(func(_ context.Context, ev Event) error {
		forwarded = append(forwarded, ev)
		return nil
	}))
	ctx := context.Background()

	first, err := New(TypeTaskUpdated, "task-1", "", map[string]int{"version": 2})
	require.NoError(t, err)
	second, err := New(TypeNotification, "", "u-2", map[string]string{"message": "approved"})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(ctx, first))
	require.NoError(t, pub.Publish(ctx, second))

	require.Len(t, forwarded, 2)
	assert.Less(t, forwarded[0].Seq, forwarded[1].Seq)

	// u-1 看不到发给 u-2 的通知
	events, err := pub.Since(ctx, 0, "u-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, TypeTaskUpdated, events[0].Type)

	events, err = pub.Since(ctx, forwarded[0].Seq, "u-2", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, TypeNotification, events[0].Type)
}

func TestPersistingPublisher_Prune(t *testing.T) {
	pub := newTestPublisher(t, nil)
	ctx := context.Background()

	old, err := New(TypeTaskUpdated, "task-1", "", nil)
	require.NoError(t, err)
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, pub.Publish(ctx, old))

	fresh, err := New(TypeTaskUpdated, "task-1", "", nil)
	require.NoError(t, err)
	require.NoError(t, pub.Publish(ctx, fresh))

	n, err := pub.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
