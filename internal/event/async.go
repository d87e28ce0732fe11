package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// ErrPublisherClosed 发布者已关闭
var ErrPublisherClosed = errors.New("publisher closed")

// AsyncPublisher 通过队列和 worker 异步转发事件,请求路径不等待推送完成
type AsyncPublisher struct {
	next    Publisher
	queue   chan Event
	logger  *logrus.Logger
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewAsyncPublisher 创建异步发布者并启动 worker
func NewAsyncPublisher(next Publisher, workers, queueSize int, logger *logrus.Logger) *AsyncPublisher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1000
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	p := &AsyncPublisher{
		next:   next,
		queue:  make(chan Event, queueSize),
		logger: logger,
	}

	// 启动 worker goroutines
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// Publish 事件入队,队列满时丢弃并记录日志
func (p *AsyncPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.queue <- ev:
	default:
		p.dropped.Add(1)
		p.logger.WithFields(logrus.Fields{
			"type":    ev.Type,
			"task_id": ev.TaskID,
		}).Warn("event queue full, dropping event")
	}
	return nil
}

// Dropped 返回因队列满被丢弃的事件数
func (p *AsyncPublisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close 停止接收新事件,等待队列中的事件处理完
func (p *AsyncPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *AsyncPublisher) worker() {
	defer p.wg.Done()
	for ev := range p.queue {
		if err := p.next.Publish(context.Background(), ev); err != nil {
			p.logger.WithError(err).WithField("type", ev.Type).Warn("failed to deliver event")
		}
	}
}
