package event

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncPublisher_DeliversAllBeforeClose(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	next := PublisherFunc(func(_ context.Context, ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev.TaskID)
		return nil
	})

	p := NewAsyncPublisher(next, 3, 64, nil)
	want := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		id := "task-" + string(rune('a'+i%26)) + string(rune('0'+i/26))
		want = append(want, id)
		require.NoError(t, p.Publish(context.Background(), Event{TaskID: id, Type: TypeTaskUpdated}))
	}
	p.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, want, seen)
	assert.Zero(t, p.Dropped())
}

func TestAsyncPublisher_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	next := PublisherFunc(func(context.Context, Event) error {
		<-release
		return nil
	})

	p := NewAsyncPublisher(next, 1, 1, nil)
	// 一个被 worker 取走阻塞,一个占满队列,其余被丢弃
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Publish(context.Background(), Event{Type: TypeTaskUpdated}))
	}
	assert.GreaterOrEqual(t, p.Dropped(), int64(3))

	close(release)
	p.Close()
}

func TestAsyncPublisher_ClosedRejects(t *testing.T) {
	p := NewAsyncPublisher(Nop, 1, 1, nil)
	p.Close()
	p.Close()
	assert.ErrorIs(t, p.Publish(context.Background(), Event{}), ErrPublisherClosed)
}
